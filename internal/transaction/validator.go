// internal/transaction/validator.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Validator проверяет подписанную транзакцию перед отправкой.
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}
	if err := v.ValidateInstructions(tx.Message.Instructions); err != nil {
		return err
	}
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}
	return nil
}

// ValidateSignatures требует подпись плательщика комиссии: она же идентификатор транзакции.
func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) == 0 || len(tx.Signatures) != required {
		return fmt.Errorf("%w: expected %d signatures, got %d", ErrInvalidSignature, required, len(tx.Signatures))
	}
	if len(tx.Message.AccountKeys) < required {
		return fmt.Errorf("%w: message has fewer accounts than signers", ErrInvalidSignature)
	}
	if tx.Signatures[0].IsZero() {
		return fmt.Errorf("%w: fee payer signature is missing", ErrInvalidSignature)
	}
	for i, sig := range tx.Signatures {
		if sig.IsZero() {
			v.logger.Debug("Transaction is partially signed", zap.Int("missing_index", i))
		}
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash.IsZero() {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}
