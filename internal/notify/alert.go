// internal/notify/alert.go
package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/events"
	"github.com/rovshanmuradov/serum-sender/internal/types"
)

// Publisher - получатель снимков уведомления.
type Publisher interface {
	Publish(event events.Event) error
}

// State - снимок уведомления для пользователя.
type State struct {
	Title       string
	Description []types.Notice
	Visible     bool
	Severity    types.Severity
}

// Alert хранит текущее уведомление и публикует каждое изменение.
// Реализует transaction.StatusReporter.
type Alert struct {
	mu        sync.RWMutex
	state     State
	publisher Publisher
	logger    *zap.Logger
}

// NewAlert создаёт уведомление. publisher может быть nil.
func NewAlert(publisher Publisher, logger *zap.Logger) *Alert {
	return &Alert{
		state:     State{Severity: types.SeverityInfo},
		publisher: publisher,
		logger:    logger.Named("alert"),
	}
}

func (a *Alert) SetTitle(title string) {
	a.update(func(s *State) { s.Title = title })
}

func (a *Alert) SetDescription(entries []types.Notice) {
	cp := append([]types.Notice(nil), entries...)
	a.update(func(s *State) { s.Description = cp })
}

func (a *Alert) SetVisible(visible bool) {
	a.update(func(s *State) { s.Visible = visible })
}

func (a *Alert) SetSeverity(severity types.Severity) {
	a.update(func(s *State) { s.Severity = severity })
}

// Snapshot возвращает копию текущего состояния.
func (a *Alert) Snapshot() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.clone()
}

func (a *Alert) update(fn func(*State)) {
	a.mu.Lock()
	fn(&a.state)
	snap := a.state.clone()
	a.mu.Unlock()

	if a.publisher == nil {
		return
	}
	event := events.AlertChangedEvent{
		BaseEvent:   events.NewBaseEvent(events.AlertChanged),
		Title:       snap.Title,
		Description: snap.Description,
		Visible:     snap.Visible,
		Severity:    snap.Severity,
	}
	if err := a.publisher.Publish(event); err != nil {
		a.logger.Debug("Failed to publish alert", zap.Error(err))
	}
}

func (s State) clone() State {
	s.Description = append([]types.Notice(nil), s.Description...)
	return s
}
