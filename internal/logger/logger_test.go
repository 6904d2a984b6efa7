package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "sender.log")

	log, err := New(&Config{LogFile: path, MaxSize: 1, Development: true, Console: &console})
	require.NoError(t, err)

	log.WithTransaction("5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW").
		Info("Transaction confirmed", zap.Uint64("slot", 42))
	log.Debug("debug line")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "[INFO]")
	assert.Contains(t, console.String(), "Transaction confirmed")
	assert.Contains(t, console.String(), "debug line")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "Transaction confirmed", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "5VERv8NM...diSZkQUW", entry["short_sig"])
	assert.EqualValues(t, 42, entry["slot"])
	assert.Contains(t, entry, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var console bytes.Buffer
	log, err := New(&Config{Console: &console})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Warn("shown")
	require.NoError(t, log.Close())

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "[WARN]")
}

func TestTrackPerformance(t *testing.T) {
	var console bytes.Buffer
	log, err := New(&Config{Console: &console, Development: true})
	require.NoError(t, err)

	end := log.TrackPerformance("send")
	end()

	out := console.String()
	assert.Contains(t, out, "Starting operation")
	assert.Contains(t, out, "Operation completed")
	assert.Contains(t, out, "correlation_id")
}

func TestShortenSignature(t *testing.T) {
	assert.Equal(t, "abc", ShortenSignature("abc"))
	assert.Equal(t, "12345678...abcdefgh", ShortenSignature("12345678XXXXXXXXXabcdefgh"))
}
