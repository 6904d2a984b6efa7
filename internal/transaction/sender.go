// internal/transaction/sender.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
	"github.com/rovshanmuradov/serum-sender/internal/events"
	"github.com/rovshanmuradov/serum-sender/internal/wallet"
)

// BlockhashSource выдаёт свежий blockhash для подписи.
type BlockhashSource interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// EventPublisher принимает события жизненного цикла транзакции.
type EventPublisher interface {
	Publish(event events.Event) error
}

// Sender доводит построенную транзакцию до подтверждения или понятной ошибки.
type Sender struct {
	client    blockchain.Client
	blockhash BlockhashSource
	validator *Validator
	metrics   *Metrics
	publisher EventPublisher
	logger    *zap.Logger
}

// SenderOption настраивает Sender.
type SenderOption func(*Sender)

// WithBlockhashSource заменяет источник blockhash (по умолчанию - сам клиент).
func WithBlockhashSource(src BlockhashSource) SenderOption {
	return func(s *Sender) { s.blockhash = src }
}

// WithEventPublisher включает публикацию событий жизненного цикла.
func WithEventPublisher(p EventPublisher) SenderOption {
	return func(s *Sender) { s.publisher = p }
}

// WithMetrics задаёт метрики (по умолчанию - незарегистрированные).
func WithMetrics(m *Metrics) SenderOption {
	return func(s *Sender) { s.metrics = m }
}

// NewSender создаёт конвейер отправки поверх клиента блокчейна.
func NewSender(client blockchain.Client, logger *zap.Logger, opts ...SenderOption) *Sender {
	s := &Sender{
		client:    client,
		blockhash: client,
		logger:    logger.Named("tx-sender"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.validator = NewValidator(s.logger)
	return s
}

// SendTransaction подписывает и отправляет транзакцию через кошелёк.
//
// Транзакция должна быть собрана с плательщиком комиссии, равным адресу кошелька.
// signers - дополнительные ключи, которыми приложение само подписывает транзакцию.
// Подпись возвращается и вместе с ошибкой, если она уже известна.
func (s *Sender) SendTransaction(ctx context.Context, tx *solana.Transaction, handle wallet.Handle, signers []solana.PrivateKey, opts Options) (solana.Signature, error) {
	opts = opts.withDefaults()
	flow := newStatusFlow(opts)
	flow.sending()

	if !handle.Valid() {
		flow.abort(ErrInvalidWallet)
		return solana.Signature{}, ErrInvalidWallet
	}

	hash, err := s.blockhash.GetRecentBlockhash(ctx)
	if err != nil {
		flow.abort(err)
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	if err := prepare(tx, handle.Address(), hash, signers); err != nil {
		flow.abort(err)
		return solana.Signature{}, err
	}

	switch handle.Kind() {
	case wallet.KindNativeSend:
		native, _ := handle.Native()
		return s.sendNative(ctx, tx, native, opts, flow)
	default:
		start := time.Now()
		if err := handle.Signer().SignTransaction(ctx, tx); err != nil {
			return s.reject(start, err, flow)
		}
		return s.sendSigned(ctx, tx, opts, flow)
	}
}

// SendSignedTransaction отправляет уже подписанную транзакцию: одна отправка,
// повторы тех же байтов и гонка подписки с опросом статуса.
func (s *Sender) SendSignedTransaction(ctx context.Context, tx *solana.Transaction, opts Options) (solana.Signature, error) {
	opts = opts.withDefaults()
	flow := newStatusFlow(opts)
	flow.sending()
	return s.sendSigned(ctx, tx, opts, flow)
}

// SendTransactions отправляет пачку транзакций по порядку; первая ошибка останавливает пачку.
// Кошелёк без собственной отправки подписывает всю пачку одним вызовом.
func (s *Sender) SendTransactions(ctx context.Context, txs []*solana.Transaction, handle wallet.Handle, opts Options) ([]solana.Signature, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	opts = opts.withDefaults()
	sigs := make([]solana.Signature, 0, len(txs))

	if handle.Kind() == wallet.KindNativeSend {
		for i, tx := range txs {
			sig, err := s.SendTransaction(ctx, tx, handle, nil, opts)
			if err != nil {
				return sigs, fmt.Errorf("transaction %d: %w", i, err)
			}
			sigs = append(sigs, sig)
		}
		return sigs, nil
	}

	signFlow := newStatusFlow(opts)
	signFlow.sending()
	if !handle.Valid() {
		signFlow.abort(ErrInvalidWallet)
		return nil, ErrInvalidWallet
	}

	hash, err := s.blockhash.GetRecentBlockhash(ctx)
	if err != nil {
		signFlow.abort(err)
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	for i, tx := range txs {
		if err := prepare(tx, handle.Address(), hash, nil); err != nil {
			signFlow.abort(err)
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	if err := handle.Signer().SignAllTransactions(ctx, txs); err != nil {
		s.finish(Outcome{Kind: OutcomeRejectedByWallet, Cause: err}, time.Now(), signFlow)
		return nil, fmt.Errorf("%w: %w", ErrTransactionRejected, err)
	}

	for i, tx := range txs {
		flow := newStatusFlow(opts)
		flow.sending()
		sig, err := s.sendSigned(ctx, tx, opts, flow)
		if err != nil {
			return sigs, fmt.Errorf("transaction %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// sendNative передаёт подпись и рассылку кошельку и ждёт только push-уведомление.
func (s *Sender) sendNative(ctx context.Context, tx *solana.Transaction, native wallet.NativeSender, opts Options, flow *statusFlow) (solana.Signature, error) {
	start := time.Now()
	sig, err := native.SendTransaction(ctx, tx)
	if err != nil {
		if reason, ok := RPCErrorReason(err); ok {
			s.logger.Warn("Wallet broadcast rejected by node", zap.String("reason", reason))
		}
		return s.reject(start, err, flow)
	}

	flow.sent(sig)
	s.publish(events.TransactionSubmittedEvent{
		BaseEvent: events.NewBaseEvent(events.TransactionSubmitted),
		Signature: sig.String(),
		Wallet:    native.Address().String(),
		Mode:      wallet.KindNativeSend.String(),
	})
	s.logger.Info("Transaction sent by wallet", zap.String("signature", sig.String()))
	flow.confirming(sig)

	conf, settled := s.awaitSignatureConfirmation(ctx, sig, start.Add(opts.Timeout), opts.Commitment)
	return s.conclude(ctx, tx, sig, start, conf, settled, flow)
}

// sendSigned - общий путь для транзакций, подписанных локально.
func (s *Sender) sendSigned(ctx context.Context, tx *solana.Transaction, opts Options, flow *statusFlow) (solana.Signature, error) {
	if err := s.validator.ValidateTransaction(tx); err != nil {
		flow.abort(err)
		return solana.Signature{}, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		flow.abort(err)
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	pending := &PendingTransaction{
		Raw:         raw,
		Signature:   tx.Signatures[0],
		SubmittedAt: time.Now(),
		Timeout:     opts.Timeout,
	}

	s.broadcast(ctx, pending, broadcastInitial)
	flow.sent(pending.Signature)
	s.publish(events.TransactionSubmittedEvent{
		BaseEvent: events.NewBaseEvent(events.TransactionSubmitted),
		Signature: pending.Signature.String(),
		Wallet:    tx.Message.AccountKeys[0].String(),
		Mode:      wallet.KindManualSign.String(),
	})
	s.logger.Info("Transaction sent",
		zap.String("signature", pending.Signature.String()),
		zap.Duration("timeout", opts.Timeout))
	flow.confirming(pending.Signature)

	conf, settled := s.awaitTransactionSignatureConfirmation(ctx, pending, opts)
	return s.conclude(ctx, tx, pending.Signature, pending.SubmittedAt, conf, settled, flow)
}

// conclude превращает исход гонки в Outcome, выдаёт терминальный отчёт и ошибку.
func (s *Sender) conclude(ctx context.Context, tx *solana.Transaction, sig solana.Signature, start time.Time, conf confirmation, settled bool, flow *statusFlow) (solana.Signature, error) {
	var outcome Outcome
	switch {
	case settled && conf.Err == nil:
		outcome = Outcome{Kind: OutcomeConfirmed, Signature: sig}
	case settled:
		outcome = Outcome{
			Kind:      OutcomeProgramError,
			Signature: sig,
			Message:   s.failureReason(ctx, tx, conf.Err),
		}
	default:
		outcome = Outcome{Kind: OutcomeTimedOut, Signature: sig}
		if err := ctx.Err(); err != nil {
			outcome.Cause = err
		}
	}

	s.finish(outcome, start, flow)
	if outcome.Kind == OutcomeConfirmed {
		s.publish(events.TransactionConfirmedEvent{
			BaseEvent: events.NewBaseEvent(events.TransactionConfirmed),
			Signature: sig.String(),
			Slot:      conf.Slot,
			Source:    conf.Source,
			Duration:  time.Since(start),
		})
		s.logger.Info("Transaction confirmed",
			zap.String("signature", sig.String()),
			zap.Uint64("slot", conf.Slot),
			zap.String("source", conf.Source),
			zap.Duration("elapsed", time.Since(start)))
	}
	return sig, outcome.Err()
}

// reject оформляет отказ кошелька.
func (s *Sender) reject(start time.Time, cause error, flow *statusFlow) (solana.Signature, error) {
	s.logger.Warn("Wallet rejected transaction", zap.Error(cause))
	outcome := Outcome{Kind: OutcomeRejectedByWallet, Cause: cause}
	s.finish(outcome, start, flow)
	return solana.Signature{}, outcome.Err()
}

// finish выдаёт терминальный отчёт, метрики и событие ошибки.
func (s *Sender) finish(outcome Outcome, start time.Time, flow *statusFlow) {
	if !flow.finish(outcome) {
		return
	}
	s.metrics.TrackOutcome(outcome.Kind, start)
	if outcome.Kind == OutcomeConfirmed {
		return
	}

	reason := outcome.Message
	if reason == "" {
		reason = outcome.Err().Error()
	}
	s.logger.Warn("Transaction did not succeed",
		zap.String("signature", txid(outcome.Signature)),
		zap.String("outcome", outcome.Kind.String()),
		zap.String("reason", reason))
	s.publish(events.TransactionFailedEvent{
		BaseEvent: events.NewBaseEvent(events.TransactionFailed),
		Signature: txid(outcome.Signature),
		Outcome:   outcome.Kind.String(),
		Reason:    reason,
		Duration:  time.Since(start),
	})
}

// failureReason симулирует транзакцию, чтобы извлечь текст ошибки программы.
// Неудачная симуляция не считается ошибкой: возвращается общая причина.
func (s *Sender) failureReason(ctx context.Context, tx *solana.Transaction, landed interface{}) string {
	sim, err := s.client.SimulateTransaction(ctx, tx)
	if err != nil {
		s.logger.Warn("Failed to decode transaction error",
			zap.Error(errors.Join(ErrSimulationFailed, err)))
		return genericFailureReason
	}
	return FailureReason(tx, sim, landed)
}

func (s *Sender) publish(event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Debug("Failed to publish event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// prepare ставит blockhash, сбрасывает старые подписи и подписывает дополнительными ключами.
func prepare(tx *solana.Transaction, payer solana.PublicKey, hash solana.Hash, signers []solana.PrivateKey) error {
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(payer) {
		return fmt.Errorf("%w: expected %s", ErrFeePayerMismatch, payer)
	}
	tx.Message.RecentBlockhash = hash
	tx.Signatures = nil

	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign with extra signers: %w", err)
	}
	return nil
}
