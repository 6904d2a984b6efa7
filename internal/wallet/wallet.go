// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrSignerKeyMissing возвращается, если транзакция требует подписи, которой нет у кошелька.
var ErrSignerKeyMissing = errors.New("wallet does not hold a required signer key")

// Wallet представляет локальный кошелёк Solana, умеющий только подписывать.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// FromPrivateKey оборачивает уже декодированный ключ.
func FromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{PrivateKey: key, PublicKey: key.PublicKey()}
}

// LoadWallets загружает кошельки из CSV-файла с колонками: [Name, PrivateKeyBase58].
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		w, err := NewWallet(record[1])
		if err != nil {
			continue
		}
		wallets[record[0]] = w
	}
	return wallets, nil
}

// Address возвращает публичный ключ кошелька.
func (w *Wallet) Address() solana.PublicKey {
	return w.PublicKey
}

// SignTransaction добавляет подпись кошелька, не трогая уже имеющиеся подписи
// (дополнительные signers подписывают транзакцию раньше).
func (w *Wallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	if !requiresSigner(tx, w.PublicKey) {
		return fmt.Errorf("%w: %s", ErrSignerKeyMissing, w.PublicKey)
	}
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// SignAllTransactions подписывает пачку транзакций; первая ошибка прерывает пачку.
func (w *Wallet) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) error {
	for i, tx := range txs {
		if err := w.SignTransaction(ctx, tx); err != nil {
			return fmt.Errorf("sign transaction %d: %w", i, err)
		}
	}
	return nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

func requiresSigner(tx *solana.Transaction, key solana.PublicKey) bool {
	signers := int(tx.Message.Header.NumRequiredSignatures)
	for i := 0; i < signers && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(key) {
			return true
		}
	}
	return false
}
