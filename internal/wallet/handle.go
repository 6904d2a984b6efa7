// internal/wallet/handle.go
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrUnsupportedWallet возвращается Detect для значений, не умеющих подписывать.
var ErrUnsupportedWallet = errors.New("wallet can neither sign nor send transactions")

// Signer - кошелёк, который умеет только подписывать транзакции.
type Signer interface {
	Address() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
	SignAllTransactions(ctx context.Context, txs []*solana.Transaction) error
}

// NativeSender - кошелёк, который сам подписывает и рассылает транзакцию.
type NativeSender interface {
	Signer
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Kind определяет способ взаимодействия с кошельком.
type Kind int

const (
	KindInvalid Kind = iota
	KindManualSign
	KindNativeSend
)

func (k Kind) String() string {
	switch k {
	case KindManualSign:
		return "manual-sign"
	case KindNativeSend:
		return "native-send"
	default:
		return "invalid"
	}
}

// Handle - размеченное объединение NativeSend | ManualSign.
// Создаётся один раз там, где получен кошелёк; дальше код делает switch по Kind.
type Handle struct {
	kind   Kind
	signer Signer
	native NativeSender
}

// NativeSend оборачивает кошелёк с собственной отправкой.
func NativeSend(w NativeSender) Handle {
	return Handle{kind: KindNativeSend, signer: w, native: w}
}

// ManualSign оборачивает кошелёк, который только подписывает.
func ManualSign(w Signer) Handle {
	return Handle{kind: KindManualSign, signer: w}
}

// Detect выбирает вариант Handle по возможностям значения.
func Detect(w any) (Handle, error) {
	switch v := w.(type) {
	case Handle:
		if v.kind == KindInvalid {
			return Handle{}, ErrUnsupportedWallet
		}
		return v, nil
	case NativeSender:
		return NativeSend(v), nil
	case Signer:
		return ManualSign(v), nil
	default:
		return Handle{}, fmt.Errorf("%w: %T", ErrUnsupportedWallet, w)
	}
}

// Kind возвращает вариант объединения.
func (h Handle) Kind() Kind { return h.kind }

// Signer возвращает подписывающую часть кошелька (есть у обоих вариантов).
func (h Handle) Signer() Signer { return h.signer }

// Native возвращает кошелёк с собственной отправкой, если это вариант NativeSend.
func (h Handle) Native() (NativeSender, bool) {
	return h.native, h.kind == KindNativeSend
}

// Address возвращает публичный ключ кошелька (fee payer).
func (h Handle) Address() solana.PublicKey {
	if h.signer == nil {
		return solana.PublicKey{}
	}
	return h.signer.Address()
}

// Valid сообщает, был ли Handle построен через конструктор.
func (h Handle) Valid() bool {
	return h.kind != KindInvalid && h.signer != nil
}
