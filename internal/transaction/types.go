// internal/transaction/types.go
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	DefaultTimeout        = 60000 * time.Millisecond
	DefaultResendInterval = 1500 * time.Millisecond
	DefaultPollInterval   = 300 * time.Millisecond
	DefaultCommitment     = rpc.CommitmentConfirmed

	DefaultSendingMessage    = "Sending transaction..."
	DefaultSentMessage       = "Transaction sent"
	DefaultConfirmingMessage = "Confirming transaction"
	DefaultSuccessMessage    = "Transaction confirmed"
)

var (
	ErrTransactionRejected = errors.New("transaction rejected by wallet")
	ErrTransactionTimedOut = errors.New("timed out awaiting confirmation on transaction")
	// ErrSimulationFailed - сама симуляция не удалась; наружу выходит FailedError
	// с причиной "Transaction failed".
	ErrSimulationFailed = errors.New("transaction simulation failed")

	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrFeePayerMismatch   = errors.New("fee payer does not match wallet")
	ErrInvalidWallet      = errors.New("invalid wallet handle")
)

// FailedError - транзакция попала в блок, но программа вернула ошибку.
type FailedError struct {
	Signature solana.Signature
	Reason    string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("transaction failed: %s", e.Reason)
}

// TransactionFailed создаёт ошибку программы с указанной причиной.
func TransactionFailed(reason string) error {
	return &FailedError{Reason: reason}
}

// OutcomeKind - терминальное состояние отправки.
type OutcomeKind int

const (
	OutcomeConfirmed OutcomeKind = iota + 1
	OutcomeTimedOut
	OutcomeProgramError
	OutcomeRejectedByWallet
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeProgramError:
		return "program_error"
	case OutcomeRejectedByWallet:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome - результат одной отправки, создаётся ровно один раз.
type Outcome struct {
	Kind      OutcomeKind
	Signature solana.Signature
	// Message - причина ошибки для OutcomeProgramError.
	Message string
	// Cause - исходная ошибка (кошелька или контекста), если есть.
	Cause error
}

// Err переводит результат в таксономию ошибок; nil для Confirmed.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeConfirmed:
		return nil
	case OutcomeTimedOut:
		if o.Cause != nil {
			return fmt.Errorf("%w: %w", ErrTransactionTimedOut, o.Cause)
		}
		return ErrTransactionTimedOut
	case OutcomeProgramError:
		return &FailedError{Signature: o.Signature, Reason: o.Message}
	case OutcomeRejectedByWallet:
		if o.Cause != nil {
			return fmt.Errorf("%w: %w", ErrTransactionRejected, o.Cause)
		}
		return ErrTransactionRejected
	default:
		return fmt.Errorf("unknown outcome %d", o.Kind)
	}
}

// PendingTransaction - транзакция в полёте.
type PendingTransaction struct {
	Raw         []byte
	Signature   solana.Signature
	SubmittedAt time.Time
	Timeout     time.Duration
}

// Deadline возвращает момент, после которого ожидание прекращается.
func (p *PendingTransaction) Deadline() time.Time {
	return p.SubmittedAt.Add(p.Timeout)
}

// Options задаёт параметры одной отправки. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Timeout        time.Duration
	ResendInterval time.Duration
	PollInterval   time.Duration
	Commitment     rpc.CommitmentType

	Reporter          StatusReporter
	SendingMessage    string
	SentMessage       string
	ConfirmingMessage string
	SuccessMessage    string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ResendInterval <= 0 {
		o.ResendInterval = DefaultResendInterval
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Commitment == "" {
		o.Commitment = DefaultCommitment
	}
	if o.Reporter == nil {
		o.Reporter = NopReporter{}
	}
	if o.SendingMessage == "" {
		o.SendingMessage = DefaultSendingMessage
	}
	if o.SentMessage == "" {
		o.SentMessage = DefaultSentMessage
	}
	if o.ConfirmingMessage == "" {
		o.ConfirmingMessage = DefaultConfirmingMessage
	}
	if o.SuccessMessage == "" {
		o.SuccessMessage = DefaultSuccessMessage
	}
	return o
}

// confirmation - первый окончательный ответ одного из наблюдателей.
type confirmation struct {
	Slot uint64
	// Err - ошибка, с которой транзакция попала в блок.
	Err    interface{}
	Source string
}
