// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// SignatureResult - push-уведомление о подтверждении подписи.
// Err != nil означает, что транзакция попала в блок с ошибкой программы.
type SignatureResult struct {
	Slot uint64
	Err  interface{}
}

// Client определяет сетевую границу конвейера отправки транзакций.
type Client interface {
	// Получить последний blockhash.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// Отправить сериализованную транзакцию как есть.
	SendRawTransaction(ctx context.Context, raw []byte, opts TransactionOptions) (solana.Signature, error)
	// Получить статусы подписей транзакций.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	// Симулировать транзакцию.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
	// Подписаться на подтверждение подписи. Канал получает не более одного
	// результата и закрывается при отмене ctx.
	OnSignature(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (<-chan SignatureResult, error)
}
