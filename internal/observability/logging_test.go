package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerConsole(t *testing.T) {
	log, err := NewLogger(Options{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, log)
	log.Debug("console logger works")
	require.NoError(t, log.Sync())
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLoggerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	log, err := NewLogger(Options{
		Level:       "info",
		File:        path,
		MaxSizeMB:   10,
		BackupCount: 2,
	})
	require.NoError(t, err)

	log.Info("file logger works")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file logger works"`)
	assert.Contains(t, string(data), `"level":"info"`)
}
