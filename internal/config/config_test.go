package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"rpc_url": "https://api.devnet.solana.com", "private_key": "key"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.ResendInterval())
	assert.Equal(t, 300*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.BlockhashRefresh())
	assert.Equal(t, rpc.CommitmentConfirmed, cfg.CommitmentType())
	assert.Equal(t, "none", cfg.Priority)
	assert.Equal(t, DefaultLogFile, cfg.LogFile)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `{"rpc_url": "https://api.devnet.solana.com", "private_key": "key", "timeout_ms": 5000}`)
	t.Setenv("SERUM_SENDER_TIMEOUT_MS", "9000")
	t.Setenv("SERUM_SENDER_COMMITMENT", "finalized")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cfg.Timeout())
	assert.Equal(t, rpc.CommitmentFinalized, cfg.CommitmentType())
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("SERUM_SENDER_RPC_URL", "http://127.0.0.1:8899")
	t.Setenv("SERUM_SENDER_PRIVATE_KEY", "key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RPCURL:             "https://api.mainnet-beta.solana.com",
			PrivateKey:         "key",
			Commitment:         "confirmed",
			TimeoutMs:          1,
			ResendIntervalMs:   1,
			PollIntervalMs:     1,
			BlockhashRefreshMs: 1,
		}
	}
	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.RPCURL = "" }},
		{"bad rpc scheme", func(c *Config) { c.RPCURL = "ftp://node" }},
		{"bad ws scheme", func(c *Config) { c.WebSocketURL = "https://node" }},
		{"no wallet", func(c *Config) { c.PrivateKey = "" }},
		{"wallets file without name", func(c *Config) { c.PrivateKey = ""; c.WalletsFile = "wallets.csv" }},
		{"bad commitment", func(c *Config) { c.Commitment = "max" }},
		{"zero timeout", func(c *Config) { c.TimeoutMs = 0 }},
		{"negative poll", func(c *Config) { c.PollIntervalMs = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
