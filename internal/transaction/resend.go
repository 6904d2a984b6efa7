// internal/transaction/resend.go
package transaction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
)

const (
	broadcastInitial = "initial"
	broadcastResend  = "resend"
)

// broadcast отправляет сырые байты без preflight. Ошибки только логируются:
// узел может потерять пакет, а следующий повтор отправит те же байты.
func (s *Sender) broadcast(ctx context.Context, pending *PendingTransaction, kind string) {
	_, err := s.client.SendRawTransaction(ctx, pending.Raw, blockchain.TransactionOptions{
		SkipPreflight: true,
	})
	s.metrics.TrackBroadcast(kind, err)
	if err != nil && ctx.Err() == nil {
		s.logger.Debug("Broadcast failed",
			zap.String("kind", kind),
			zap.String("signature", pending.Signature.String()),
			zap.Error(err))
	}
}

// resendLoop повторяет отправку тех же байтов каждые interval до фиксации результата или дедлайна.
func (s *Sender) resendLoop(ctx context.Context, pending *PendingTransaction, interval time.Duration, st *settler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil || st.Settled() {
			return
		}
		s.broadcast(ctx, pending, broadcastResend)
	}
}
