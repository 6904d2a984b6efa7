// internal/transaction/confirm.go
package transaction

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sourceWebSocket = "websocket"
	sourcePoll      = "poll"
)

// awaitSignatureConfirmation ждёт только push-уведомление, наперегонки с таймером.
// Используется для кошельков с собственной отправкой: локальных повторов и опроса нет.
func (s *Sender) awaitSignatureConfirmation(ctx context.Context, sig solana.Signature, deadline time.Time, commitment rpc.CommitmentType) (confirmation, bool) {
	raceCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	st := newSettler(cancel)

	var g errgroup.Group
	g.Go(func() error {
		s.watchSignature(raceCtx, sig, commitment, st)
		return nil
	})
	// Таймер: держит гонку открытой до дедлайна, даже если подписка оборвалась
	g.Go(func() error {
		<-raceCtx.Done()
		return nil
	})
	_ = g.Wait()

	return st.Result()
}

// awaitTransactionSignatureConfirmation повторно отправляет транзакцию и ждёт
// первого окончательного ответа от подписки или опроса статуса.
// Возвращается только после остановки всех горутин.
func (s *Sender) awaitTransactionSignatureConfirmation(ctx context.Context, pending *PendingTransaction, opts Options) (confirmation, bool) {
	raceCtx, cancel := context.WithDeadline(ctx, pending.Deadline())
	defer cancel()
	st := newSettler(cancel)

	var g errgroup.Group
	g.Go(func() error {
		s.resendLoop(raceCtx, pending, opts.ResendInterval, st)
		return nil
	})
	g.Go(func() error {
		s.watchSignature(raceCtx, pending.Signature, opts.Commitment, st)
		return nil
	})
	g.Go(func() error {
		s.pollSignatureStatus(raceCtx, pending.Signature, opts.PollInterval, opts.Commitment, st)
		return nil
	})
	_ = g.Wait()

	return st.Result()
}

// watchSignature ждёт одно push-уведомление о подписи.
func (s *Sender) watchSignature(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType, st *settler) {
	ch, err := s.client.OnSignature(ctx, sig, commitment)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("Signature subscription unavailable",
				zap.String("signature", sig.String()),
				zap.Error(err))
		}
		return
	}

	select {
	case <-ctx.Done():
	case res, ok := <-ch:
		if !ok {
			return
		}
		if st.settle(confirmation{Slot: res.Slot, Err: res.Err, Source: sourceWebSocket}) {
			s.logger.Debug("Signature notification received",
				zap.String("signature", sig.String()),
				zap.Uint64("slot", res.Slot))
		}
	}
}

// pollSignatureStatus опрашивает статус подписи каждые interval; первый опрос через interval после старта.
func (s *Sender) pollSignatureStatus(ctx context.Context, sig solana.Signature, interval time.Duration, commitment rpc.CommitmentType, st *settler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if st.Settled() {
			return
		}

		res, err := s.client.GetSignatureStatuses(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("Signature status poll failed",
				zap.String("signature", sig.String()),
				zap.Error(err))
			continue
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}

		status := res.Value[0]
		if status.Err != nil || statusReached(status, commitment) {
			if st.settle(confirmation{Slot: status.Slot, Err: status.Err, Source: sourcePoll}) {
				s.logger.Debug("Signature status resolved by poll",
					zap.String("signature", sig.String()),
					zap.String("status", string(status.ConfirmationStatus)))
			}
			return
		}
	}
}

// statusReached сообщает, достиг ли статус запрошенного уровня подтверждения.
// Пустой confirmationStatus с nil confirmations означает корневой (финализированный) слот.
func statusReached(status *rpc.SignatureStatusesResult, commitment rpc.CommitmentType) bool {
	rooted := status.ConfirmationStatus == "" && status.Confirmations == nil
	switch commitment {
	case rpc.CommitmentProcessed:
		return true
	case rpc.CommitmentFinalized:
		return status.ConfirmationStatus == rpc.ConfirmationStatusFinalized || rooted
	default:
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return true
		}
		return rooted || (status.Confirmations != nil && *status.Confirmations > 0)
	}
}
