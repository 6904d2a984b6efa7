// internal/transaction/settle.go
package transaction

import (
	"context"
	"sync"
)

// settler - одноразовое присваивание результата гонки наблюдателей.
// Побеждает первый вызов settle; остальные игнорируются, а контекст
// гонки отменяется, чтобы остановить повторную отправку и второго наблюдателя.
type settler struct {
	once   sync.Once
	done   chan struct{}
	cancel context.CancelFunc
	result confirmation
}

func newSettler(cancel context.CancelFunc) *settler {
	return &settler{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// settle фиксирует результат. Возвращает true только для первого вызова.
func (s *settler) settle(c confirmation) bool {
	won := false
	s.once.Do(func() {
		s.result = c
		won = true
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
	})
	return won
}

// Done закрывается в момент фиксации результата.
func (s *settler) Done() <-chan struct{} {
	return s.done
}

// Settled сообщает, зафиксирован ли результат.
func (s *settler) Settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Result возвращает зафиксированный результат.
func (s *settler) Result() (confirmation, bool) {
	select {
	case <-s.done:
		return s.result, true
	default:
		return confirmation{}, false
	}
}
