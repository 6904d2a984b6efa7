// internal/actions/actions.go
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/transaction"
	"github.com/rovshanmuradov/serum-sender/internal/wallet"
)

// TokenAccountSize - размер SPL Token аккаунта в байтах.
const TokenAccountSize = 165

// ErrZeroAmount возвращается при попытке перевести 0 лампортов.
var ErrZeroAmount = errors.New("amount must be positive")

// TransactionSender - часть конвейера отправки, нужная действиям.
type TransactionSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction, handle wallet.Handle, signers []solana.PrivateKey, opts transaction.Options) (solana.Signature, error)
}

// RentCalculator возвращает rent-exempt минимум для аккаунта.
type RentCalculator interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

// Service собирает инструкции и сразу передаёт транзакцию в конвейер отправки.
type Service struct {
	sender   TransactionSender
	rent     RentCalculator
	priority *PriorityManager
	level    PriorityLevel
	logger   *zap.Logger
}

// NewService создаёт сервис действий с уровнем приоритета level.
func NewService(sender TransactionSender, rent RentCalculator, level PriorityLevel, logger *zap.Logger) *Service {
	return &Service{
		sender:   sender,
		rent:     rent,
		priority: NewPriorityManager(logger),
		level:    level,
		logger:   logger.Named("actions"),
	}
}

// Transfer переводит lamports с кошелька на адрес to.
func (s *Service) Transfer(ctx context.Context, handle wallet.Handle, to solana.PublicKey, lamports uint64, opts transaction.Options) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, ErrZeroAmount
	}
	from := handle.Address()

	tx, err := s.buildTransaction(from, system.NewTransferInstruction(lamports, from, to).Build())
	if err != nil {
		return solana.Signature{}, err
	}

	if opts.SendingMessage == "" {
		opts.SendingMessage = "Sending SOL..."
	}
	if opts.SuccessMessage == "" {
		opts.SuccessMessage = "Transfer confirmed"
	}

	s.logger.Info("Transfer",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("lamports", lamports))
	return s.sender.SendTransaction(ctx, tx, handle, nil, opts)
}

// CreateTokenAccount создаёт и инициализирует SPL Token аккаунт для mint.
// Новый аккаунт подписывает транзакцию как дополнительный signer.
func (s *Service) CreateTokenAccount(ctx context.Context, handle wallet.Handle, mint solana.PublicKey, opts transaction.Options) (solana.PublicKey, solana.Signature, error) {
	owner := handle.Address()

	account, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, fmt.Errorf("failed to generate account key: %w", err)
	}

	lamports, err := s.rent.GetMinimumBalanceForRentExemption(ctx, TokenAccountSize)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, fmt.Errorf("failed to get rent exemption: %w", err)
	}

	tx, err := s.buildTransaction(owner,
		system.NewCreateAccountInstruction(lamports, TokenAccountSize, solana.TokenProgramID, owner, account.PublicKey()).Build(),
		token.NewInitializeAccountInstruction(account.PublicKey(), mint, owner, solana.SysVarRentPubkey).Build(),
	)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}

	if opts.SendingMessage == "" {
		opts.SendingMessage = "Creating token account..."
	}
	if opts.SuccessMessage == "" {
		opts.SuccessMessage = "Token account created"
	}

	s.logger.Info("Create token account",
		zap.String("account", account.PublicKey().String()),
		zap.String("mint", mint.String()),
		zap.Uint64("rent_lamports", lamports))

	sig, err := s.sender.SendTransaction(ctx, tx, handle, []solana.PrivateKey{account}, opts)
	return account.PublicKey(), sig, err
}

// buildTransaction добавляет compute-budget инструкции перед основными.
// Blockhash выставляет конвейер отправки.
func (s *Service) buildTransaction(payer solana.PublicKey, instructions ...solana.Instruction) (*solana.Transaction, error) {
	priority, err := s.priority.CreatePriorityInstructions(s.level)
	if err != nil {
		return nil, err
	}

	all := make([]solana.Instruction, 0, len(priority)+len(instructions))
	all = append(all, priority...)
	all = append(all, instructions...)

	tx, err := solana.NewTransaction(all, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create new transaction: %w", err)
	}
	return tx, nil
}
