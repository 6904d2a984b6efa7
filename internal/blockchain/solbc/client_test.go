package solbc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode отвечает на JSON-RPC запросы заранее заданными результатами.
type fakeNode struct {
	mu       sync.Mutex
	results  map[string]any
	errors   map[string]map[string]any
	failHTTP map[string]int
	requests []rpcRequest
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		results:  make(map[string]any),
		errors:   make(map[string]map[string]any),
		failHTTP: make(map[string]int),
	}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.requests = append(n.requests, req)
	if n.failHTTP[req.Method] > 0 {
		n.failHTTP[req.Method]--
		n.mu.Unlock()
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	result, hasResult := n.results[req.Method]
	rpcErr := n.errors[req.Method]
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case rpcErr != nil:
		resp["error"] = rpcErr
	case hasResult:
		resp["result"] = result
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "Method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) calls(method string) []rpcRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []rpcRequest
	for _, r := range n.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "", zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func withContext(value any) map[string]any {
	return map[string]any{"context": map[string]any{"slot": 100}, "value": value}
}

func testTx(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build()},
		solana.Hash(solana.TokenProgramID),
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func TestDeriveWebSocketURL(t *testing.T) {
	tests := []struct {
		name   string
		rpcURL string
		want   string
	}{
		{"https without port", "https://api.devnet.solana.com", "wss://api.devnet.solana.com"},
		{"path and query kept", "https://rpc.example.com/v1?api-key=abc", "wss://rpc.example.com/v1?api-key=abc"},
		{"local validator", "http://localhost:8899", "ws://localhost:8900"},
		{"loopback ip", "http://127.0.0.1:8899", "ws://127.0.0.1:8900"},
		{"explicit https port", "https://node.example.com:443", "wss://node.example.com:444"},
		{"ipv6 host", "http://[::1]:8899", "ws://[::1]:8900"},
		{"unsupported scheme", "ftp://node", ""},
		{"not a url", "localhost", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveWebSocketURL(tt.rpcURL))
		})
	}
}

func TestNewClientDerivesWebSocketPort(t *testing.T) {
	c := NewClient("http://localhost:8899", "", zap.NewNop())
	assert.Equal(t, "ws://localhost:8900", c.wsURL)

	c = NewClient("http://localhost:8899", "ws://localhost:9000", zap.NewNop())
	assert.Equal(t, "ws://localhost:9000", c.wsURL)
}

func TestGetRecentBlockhashRetriesHTTPErrors(t *testing.T) {
	hash := solana.Hash(solana.TokenProgramID)
	node := newFakeNode()
	node.failHTTP["getLatestBlockhash"] = 1
	node.results["getLatestBlockhash"] = withContext(map[string]any{
		"blockhash":            hash.String(),
		"lastValidBlockHeight": 200,
	})
	c := newTestClient(t, node)

	got, err := c.GetRecentBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, got)
	assert.Len(t, node.calls("getLatestBlockhash"), 2)
}

func TestSendRawTransactionPassesBytesThrough(t *testing.T) {
	tx := testTx(t)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	node := newFakeNode()
	node.results["sendTransaction"] = tx.Signatures[0].String()
	c := newTestClient(t, node)

	sig, err := c.SendRawTransaction(context.Background(), raw, blockchain.TransactionOptions{SkipPreflight: true})
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)

	calls := node.calls("sendTransaction")
	require.Len(t, calls, 1)
	var encoded string
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &encoded))
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), encoded)

	var opts map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Params[1], &opts))
	assert.Equal(t, true, opts["skipPreflight"])
}

func TestSendRawTransactionRPCError(t *testing.T) {
	node := newFakeNode()
	node.errors["sendTransaction"] = map[string]any{"code": -32002, "message": "Transaction simulation failed"}
	c := newTestClient(t, node)

	_, err := c.SendRawTransaction(context.Background(), []byte{1, 2, 3}, blockchain.TransactionOptions{})
	var rpcErr *jsonrpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32002, rpcErr.Code)
}

func TestGetSignatureStatuses(t *testing.T) {
	node := newFakeNode()
	node.results["getSignatureStatuses"] = withContext([]any{
		map[string]any{
			"slot":               55,
			"confirmations":      nil,
			"err":                nil,
			"confirmationStatus": "finalized",
		},
		nil,
	})
	c := newTestClient(t, node)

	res, err := c.GetSignatureStatuses(context.Background(), solana.Signature{1}, solana.Signature{2})
	require.NoError(t, err)
	require.Len(t, res.Value, 2)
	assert.Equal(t, uint64(55), res.Value[0].Slot)
	assert.Equal(t, rpc.ConfirmationStatusFinalized, res.Value[0].ConfirmationStatus)
	assert.Nil(t, res.Value[1])
}

func TestSimulateTransaction(t *testing.T) {
	node := newFakeNode()
	node.results["simulateTransaction"] = withContext(map[string]any{
		"err":           map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}},
		"logs":          []string{"Program 11111111111111111111111111111111 invoke [1]", "Program log: insufficient lamports"},
		"unitsConsumed": 150,
	})
	c := newTestClient(t, node)

	res, err := c.SimulateTransaction(context.Background(), testTx(t))
	require.NoError(t, err)
	assert.NotNil(t, res.Err)
	assert.Len(t, res.Logs, 2)
	assert.Equal(t, uint64(150), res.UnitsConsumed)

	calls := node.calls("simulateTransaction")
	require.Len(t, calls, 1)
	var opts map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Params[1], &opts))
	assert.NotContains(t, opts, "sigVerify")
	assert.Equal(t, "processed", opts["commitment"])
}

func TestBalanceAndRent(t *testing.T) {
	node := newFakeNode()
	node.results["getBalance"] = withContext(1_500_000_000)
	node.results["getMinimumBalanceForRentExemption"] = 2_039_280
	c := newTestClient(t, node)

	balance, err := c.GetBalance(context.Background(), solana.SystemProgramID, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), balance)

	rent, err := c.GetMinimumBalanceForRentExemption(context.Background(), 165)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_039_280), rent)
}

func TestOnSignatureWithoutWebSocket(t *testing.T) {
	c := NewClient("ftp://node", "", zap.NewNop())
	_, err := c.OnSignature(context.Background(), solana.Signature{1}, rpc.CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrNoWebSocket)
}
