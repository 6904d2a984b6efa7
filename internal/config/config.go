// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"
)

type Config struct {
	RPCURL       string `mapstructure:"rpc_url"`
	WebSocketURL string `mapstructure:"websocket_url"`

	PrivateKey  string `mapstructure:"private_key"`
	WalletsFile string `mapstructure:"wallets_file"`
	WalletName  string `mapstructure:"wallet_name"`

	Commitment         string `mapstructure:"commitment"`
	TimeoutMs          int    `mapstructure:"timeout_ms"`
	ResendIntervalMs   int    `mapstructure:"resend_interval_ms"`
	PollIntervalMs     int    `mapstructure:"poll_interval_ms"`
	BlockhashRefreshMs int    `mapstructure:"blockhash_refresh_ms"`
	Priority           string `mapstructure:"priority"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

const (
	DefaultCommitment         = "confirmed"
	DefaultTimeoutMs          = 60000
	DefaultResendIntervalMs   = 1500
	DefaultPollIntervalMs     = 300
	DefaultBlockhashRefreshMs = 10000
	DefaultPriority           = "none"
	DefaultLogFile            = "sender.log"

	envPrefix = "SERUM_SENDER"
)

var keys = []string{
	"rpc_url", "websocket_url",
	"private_key", "wallets_file", "wallet_name",
	"commitment", "timeout_ms", "resend_interval_ms", "poll_interval_ms",
	"blockhash_refresh_ms", "priority",
	"debug_logging", "log_file", "metrics_addr",
}

// LoadConfig читает файл (JSON/YAML) и переопределения из SERUM_SENDER_*.
// Пустой path - только переменные окружения.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"commitment":           DefaultCommitment,
		"timeout_ms":           DefaultTimeoutMs,
		"resend_interval_ms":   DefaultResendIntervalMs,
		"poll_interval_ms":     DefaultPollIntervalMs,
		"blockhash_refresh_ms": DefaultBlockhashRefreshMs,
		"priority":             DefaultPriority,
		"log_file":             DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv не видит ключи без значения при Unmarshal
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.WebSocketURL != "" {
		if err := validateURL(cfg.WebSocketURL, "ws"); err != nil {
			return fmt.Errorf("invalid websocket_url: %w", err)
		}
	}
	if cfg.PrivateKey == "" && cfg.WalletsFile == "" {
		return errors.New("either private_key or wallets_file must be set")
	}
	if cfg.WalletsFile != "" && cfg.PrivateKey == "" && cfg.WalletName == "" {
		return errors.New("wallet_name is required with wallets_file")
	}
	switch rpc.CommitmentType(cfg.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment: %q", cfg.Commitment)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TimeoutMs <= 0 {
		return errors.New("invalid timeout_ms")
	}
	if cfg.ResendIntervalMs <= 0 {
		return errors.New("invalid resend_interval_ms")
	}
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.BlockhashRefreshMs <= 0 {
		return errors.New("invalid blockhash_refresh_ms")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c *Config) ResendInterval() time.Duration {
	return time.Duration(c.ResendIntervalMs) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) BlockhashRefresh() time.Duration {
	return time.Duration(c.BlockhashRefreshMs) * time.Millisecond
}

func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}
