// cmd/sender/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/serum-sender/internal/actions"
	"github.com/rovshanmuradov/serum-sender/internal/blockchain/solbc"
	"github.com/rovshanmuradov/serum-sender/internal/cache"
	"github.com/rovshanmuradov/serum-sender/internal/config"
	"github.com/rovshanmuradov/serum-sender/internal/events"
	"github.com/rovshanmuradov/serum-sender/internal/logger"
	"github.com/rovshanmuradov/serum-sender/internal/notify"
	"github.com/rovshanmuradov/serum-sender/internal/transaction"
	"github.com/rovshanmuradov/serum-sender/internal/wallet"
)

const usage = `usage: sender [-config path] [-native] <command> [args]

commands:
  transfer <to> <lamports>
  create-token-account <mint>
  balance [-watch interval]
`

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	native := flag.Bool("native", false, "let the wallet sign and broadcast the transaction itself")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *native, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, native bool, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	client := solbc.NewClient(cfg.RPCURL, cfg.WebSocketURL, log.Logger)
	defer client.Close()

	w, err := loadWallet(cfg)
	if err != nil {
		return err
	}
	handle := wallet.ManualSign(w)
	if native {
		handle = wallet.NativeSend(wallet.NewRelayWallet(w, client, log.Logger))
	}
	log.Info("Wallet loaded",
		zap.String("address", handle.Address().String()),
		zap.String("mode", handle.Kind().String()))

	store := cache.NewStore(log.Logger)
	defer store.Close()

	bus := events.NewBus(log.Logger, 256)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bus.Shutdown(shutdownCtx)
	}()
	bus.Subscribe(events.AlertChanged, notify.NewPrinter(os.Stdout, notify.DefaultStyles()))
	bus.Subscribe(events.TransactionConfirmed, events.On(func(_ context.Context, e events.TransactionConfirmedEvent) error {
		log.WithTransaction(e.Signature).Debug("Confirmation observed",
			zap.Uint64("slot", e.Slot),
			zap.String("source", e.Source),
			zap.Duration("duration", e.Duration))
		return nil
	}))
	bus.Subscribe(events.TransactionFailed, events.On(func(_ context.Context, e events.TransactionFailedEvent) error {
		log.WithTransaction(e.Signature).Warn("Transaction did not confirm",
			zap.String("outcome", e.Outcome),
			zap.String("reason", e.Reason))
		return nil
	}))

	switch args[0] {
	case "balance":
		return runBalance(ctx, client, store, handle.Address(), args[1:])
	case "transfer", "create-token-account":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	registry := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, registry, log.Logger)
	}

	blockhashes, err := cache.NewBlockhashCache(store, client, cfg.BlockhashRefresh(), cfg.BlockhashRefresh())
	if err != nil {
		return err
	}
	defer blockhashes.Close()

	sender := transaction.NewSender(client, log.Logger,
		transaction.WithBlockhashSource(blockhashes),
		transaction.WithEventPublisher(bus),
		transaction.WithMetrics(transaction.NewMetrics(registry)),
	)

	level, err := actions.ParsePriorityLevel(cfg.Priority)
	if err != nil {
		return err
	}
	svc := actions.NewService(sender, client, level, log.Logger)

	opts := transaction.Options{
		Timeout:        cfg.Timeout(),
		ResendInterval: cfg.ResendInterval(),
		PollInterval:   cfg.PollInterval(),
		Commitment:     cfg.CommitmentType(),
		Reporter:       notify.NewAlert(bus, log.Logger),
	}

	end := log.TrackPerformance(args[0])
	defer end()

	switch args[0] {
	case "transfer":
		if len(args) != 3 {
			return errors.New("usage: transfer <to> <lamports>")
		}
		to, err := solana.PublicKeyFromBase58(args[1])
		if err != nil {
			return fmt.Errorf("invalid recipient: %w", err)
		}
		lamports, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		sig, err := svc.Transfer(ctx, handle, to, lamports, opts)
		if err != nil {
			return err
		}
		log.WithTransaction(sig.String()).Info("Transfer confirmed")
		fmt.Println(sig)

	case "create-token-account":
		if len(args) != 2 {
			return errors.New("usage: create-token-account <mint>")
		}
		mint, err := solana.PublicKeyFromBase58(args[1])
		if err != nil {
			return fmt.Errorf("invalid mint: %w", err)
		}
		account, sig, err := svc.CreateTokenAccount(ctx, handle, mint, opts)
		if err != nil {
			return err
		}
		log.WithTransaction(sig.String()).Info("Token account created", zap.String("account", account.String()))
		fmt.Println(account, sig)
	}
	return nil
}

func loadWallet(cfg *config.Config) (*wallet.Wallet, error) {
	if cfg.PrivateKey != "" {
		return wallet.NewWallet(cfg.PrivateKey)
	}
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, err
	}
	w, ok := wallets[cfg.WalletName]
	if !ok {
		return nil, fmt.Errorf("wallet %q not found in %s", cfg.WalletName, cfg.WalletsFile)
	}
	return w, nil
}

func runBalance(ctx context.Context, client *solbc.Client, store *cache.Store, owner solana.PublicKey, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	watch := fs.Duration("watch", 0, "keep printing the balance at this interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fetch := func(ctx context.Context) (any, error) {
		return client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	}
	if *watch <= 0 {
		lamports, err := fetch(ctx)
		if err != nil {
			return err
		}
		printBalance(lamports.(uint64))
		return nil
	}

	h, err := store.Subscribe("balance:"+owner.String(), fetch, *watch)
	if err != nil {
		return err
	}
	defer store.Unsubscribe(h)

	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-h.Updates():
			if lamports, ok := v.(uint64); ok {
				printBalance(lamports)
			}
		}
	}
}

func printBalance(lamports uint64) {
	fmt.Printf("%d lamports (%.9f SOL)\n", lamports, float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
}

func serveMetrics(addr string, registry *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server stopped", zap.Error(err))
	}
}
