// internal/wallet/relay.go
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
)

const (
	relayMaxTries    = 3
	relayRetryWindow = 3 * time.Second
)

// RawBroadcaster - часть blockchain.Client, нужная кошельку для отправки.
type RawBroadcaster interface {
	SendRawTransaction(ctx context.Context, raw []byte, opts blockchain.TransactionOptions) (solana.Signature, error)
}

// RelayWallet ведёт себя как кошелёк-расширение: подписывает своим ключом
// и сам рассылает транзакцию через собственный RPC endpoint.
type RelayWallet struct {
	*Wallet
	conn   RawBroadcaster
	logger *zap.Logger
}

// NewRelayWallet создаёт кошелёк с собственной отправкой.
func NewRelayWallet(w *Wallet, conn RawBroadcaster, logger *zap.Logger) *RelayWallet {
	return &RelayWallet{
		Wallet: w,
		conn:   conn,
		logger: logger.Named("relay-wallet"),
	}
}

// SendTransaction подписывает и рассылает транзакцию с preflight-проверкой.
// Повторяются только транспортные ошибки; ответ узла с ошибкой JSON-RPC окончателен.
func (r *RelayWallet) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := r.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	op := func() (solana.Signature, error) {
		sig, err := r.conn.SendRawTransaction(ctx, raw, blockchain.TransactionOptions{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
		if err != nil {
			var rpcErr *jsonrpc.RPCError
			if errors.As(err, &rpcErr) || ctx.Err() != nil {
				return solana.Signature{}, backoff.Permanent(err)
			}
			return solana.Signature{}, err
		}
		return sig, nil
	}

	sig, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(relayMaxTries),
		backoff.WithMaxElapsedTime(relayRetryWindow),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger.Debug("Retrying relay broadcast", zap.Error(err), zap.Duration("backoff", d))
		}))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("relay broadcast: %w", err)
	}

	r.logger.Debug("Transaction relayed", zap.String("signature", sig.String()))
	return sig, nil
}

var _ NativeSender = (*RelayWallet)(nil)
var _ Signer = (*Wallet)(nil)
