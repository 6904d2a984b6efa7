// internal/transaction/mocks_test.go
package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
	"github.com/rovshanmuradov/serum-sender/internal/types"
	"github.com/rovshanmuradov/serum-sender/internal/wallet"
)

var (
	errNetworkDown = errors.New("network down")
	testBlockhash  = solana.Hash(solana.TokenProgramID)
)

// fakeClient записывает все вызовы сети; поведение задаётся полями до запуска.
type fakeClient struct {
	mu sync.Mutex

	sendErr error
	sent    [][]byte

	// statusFn вызывается с номером опроса, начиная с 1.
	statusFn    func(call int) *rpc.SignatureStatusesResult
	statusErr   error
	statusCalls int

	simResult *blockchain.SimulationResult
	simErr    error
	simCalls  int

	// notify отдаётся из OnSignature; nil - подписка недоступна.
	notify   chan blockchain.SignatureResult
	subCalls int
}

func (f *fakeClient) GetRecentBlockhash(_ context.Context) (solana.Hash, error) {
	return testBlockhash, nil
}

func (f *fakeClient) SendRawTransaction(_ context.Context, raw []byte, opts blockchain.TransactionOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	f.sent = append(f.sent, cp)
	if !opts.SkipPreflight {
		return solana.Signature{}, errors.New("preflight must be skipped")
	}
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return solana.Signature{}, err
	}
	return tx.Signatures[0], nil
}

func (f *fakeClient) GetSignatureStatuses(_ context.Context, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	var status *rpc.SignatureStatusesResult
	if f.statusFn != nil {
		status = f.statusFn(f.statusCalls)
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}, nil
}

func (f *fakeClient) SimulateTransaction(_ context.Context, _ *solana.Transaction) (*blockchain.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simCalls++
	if f.simErr != nil {
		return nil, f.simErr
	}
	return f.simResult, nil
}

func (f *fakeClient) OnSignature(_ context.Context, _ solana.Signature, _ rpc.CommitmentType) (<-chan blockchain.SignatureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subCalls++
	if f.notify == nil {
		return nil, errors.New("websocket unavailable")
	}
	return f.notify, nil
}

func (f *fakeClient) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeClient) sentCopy() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeClient) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// MockSigner - кошелёк, поведение которого задаётся через testify mock.
type MockSigner struct {
	mock.Mock
	address solana.PublicKey
}

func (m *MockSigner) Address() solana.PublicKey { return m.address }

func (m *MockSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockSigner) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

// nativeWallet подписывает локально и возвращает подпись, ничего не отправляя в сеть.
type nativeWallet struct {
	*wallet.Wallet
	mu    sync.Mutex
	calls int
	err   error
}

func (n *nativeWallet) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	if n.err != nil {
		return solana.Signature{}, n.err
	}
	if err := n.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, err
	}
	return tx.Signatures[0], nil
}

// recordingReporter запоминает все вызовы StatusReporter.
type recordingReporter struct {
	mu           sync.Mutex
	titles       []string
	descriptions [][]types.Notice
	severities   []types.Severity
	visible      []bool
}

func (r *recordingReporter) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
}

func (r *recordingReporter) SetDescription(entries []types.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptions = append(r.descriptions, entries)
}

func (r *recordingReporter) SetVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = append(r.visible, visible)
}

func (r *recordingReporter) SetSeverity(severity types.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.severities = append(r.severities, severity)
}

// terminalCount считает терминальные отчёты (всё, кроме info).
func (r *recordingReporter) terminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.severities {
		if s != types.SeverityInfo {
			n++
		}
	}
	return n
}

func (r *recordingReporter) lastSeverity() types.Severity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.severities) == 0 {
		return ""
	}
	return r.severities[len(r.severities)-1]
}

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return wallet.FromPrivateKey(key)
}

// newTransferTx собирает неподписанный перевод от payer.
func newTransferTx(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	to, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1000, payer, to.PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

// newSignedTransferTx собирает и подписывает перевод кошельком w.
func newSignedTransferTx(t *testing.T, w *wallet.Wallet) *solana.Transaction {
	t.Helper()
	tx := newTransferTx(t, w.PublicKey)
	tx.Message.RecentBlockhash = testBlockhash
	require.NoError(t, w.SignTransaction(context.Background(), tx))
	return tx
}

func confirmedStatus() *rpc.SignatureStatusesResult {
	one := uint64(1)
	return &rpc.SignatureStatusesResult{
		Slot:               42,
		Confirmations:      &one,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}
}
