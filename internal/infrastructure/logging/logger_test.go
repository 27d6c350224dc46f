package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/configs"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pfcontrol.log")

	logger, err := NewLogger(configs.LoggingConfig{Level: "info", Encoding: "json", FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("hello", Fields(General, Startup, map[ExtraKey]any{SessionID: "abcd1234"})...)
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"category":"General"`)
	require.Contains(t, string(raw), `"SessionId":"abcd1234"`)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(configs.LoggingConfig{Level: "loud"})
	require.Error(t, err)
}
