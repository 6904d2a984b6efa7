// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
)

const (
	blockhashMaxTries    = 3
	blockhashRetryWindow = 5 * time.Second
)

// ErrNoWebSocket возвращается, если WebSocket endpoint не настроен.
var ErrNoWebSocket = errors.New("websocket endpoint is not configured")

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	wsURL  string
	logger *zap.Logger

	wsMu sync.Mutex
	ws   *ws.Client
}

// NewClient создаёт новый клиент, принимая RPC/WS URL и логгер через dependency injection.
// Пустой wsURL выводится из rpcURL через DeriveWebSocketURL.
func NewClient(rpcURL, wsURL string, logger *zap.Logger) *Client {
	if wsURL == "" {
		wsURL = DeriveWebSocketURL(rpcURL)
	}
	return &Client{
		rpc:    rpc.New(rpcURL),
		wsURL:  wsURL,
		logger: logger.Named("solbc-client"),
	}
}

// DeriveWebSocketURL возвращает ws(s)-адрес для http(s) RPC endpoint.
// Явно указанный порт увеличивается на единицу (8899 -> 8900), как у локального валидатора.
func DeriveWebSocketURL(rpcURL string) string {
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return ""
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return ""
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(n+1))
	}
	return u.String()
}

// GetRecentBlockhash получает последний blockhash, повторяя запрос при сетевых ошибках.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	op := func() (solana.Hash, error) {
		result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			if ctx.Err() != nil {
				return solana.Hash{}, backoff.Permanent(ctx.Err())
			}
			return solana.Hash{}, err
		}
		if result == nil || result.Value == nil {
			return solana.Hash{}, backoff.Permanent(errors.New("empty blockhash response"))
		}
		return result.Value.Blockhash, nil
	}

	notify := func(err error, d time.Duration) {
		c.logger.Debug("Retrying blockhash fetch", zap.Error(err), zap.Duration("backoff", d))
	}

	hash, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(blockhashMaxTries),
		backoff.WithMaxElapsedTime(blockhashRetryWindow),
		backoff.WithNotify(notify))
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, fmt.Errorf("get recent blockhash: %w", err)
	}
	return hash, nil
}

// SendRawTransaction отправляет уже подписанные байты транзакции без изменений.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Debug("SendRawTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// SimulateTransaction симулирует транзакцию на текущем состоянии сети.
// Подписи не проверяются: важен только текст ошибки программы.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, errors.New("empty simulation response")
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// OnSignature подписывается на уведомление о подтверждении подписи через WebSocket.
func (c *Client) OnSignature(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (<-chan blockchain.SignatureResult, error) {
	wsClient, err := c.wsClient(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := wsClient.SignatureSubscribe(signature, commitment)
	if err != nil {
		// Соединение могло умереть: следующий вызов переподключится
		c.resetWS(wsClient)
		return nil, fmt.Errorf("signature subscribe: %w", err)
	}

	out := make(chan blockchain.SignatureResult, 1)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		res, err := sub.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Signature subscription failed",
					zap.String("signature", signature.String()),
					zap.Error(err))
			}
			return
		}
		out <- blockchain.SignatureResult{Slot: res.Context.Slot, Err: res.Value.Err}
	}()

	return out, nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetMinimumBalanceForRentExemption возвращает минимальный rent-exempt баланс для аккаунта размера dataSize.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetMinimumBalanceForRentExemption error", zap.Error(err))
		return 0, err
	}
	return lamports, nil
}

// Close закрывает RPC и WebSocket соединения.
func (c *Client) Close() error {
	c.wsMu.Lock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.wsMu.Unlock()
	return c.rpc.Close()
}

func (c *Client) wsClient(ctx context.Context) (*ws.Client, error) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws != nil {
		return c.ws, nil
	}
	if c.wsURL == "" {
		return nil, ErrNoWebSocket
	}

	wsClient, err := ws.Connect(ctx, c.wsURL)
	if err != nil {
		c.logger.Warn("WebSocket connect failed", zap.String("url", c.wsURL), zap.Error(err))
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	c.ws = wsClient
	return wsClient, nil
}

func (c *Client) resetWS(stale *ws.Client) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == stale {
		c.ws.Close()
		c.ws = nil
	}
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
