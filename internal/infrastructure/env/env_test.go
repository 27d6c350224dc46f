package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	t.Setenv("PFC_TEST_STRING", "value")
	t.Setenv("PFC_TEST_INT", "42")
	t.Setenv("PFC_TEST_BAD_INT", "x")
	t.Setenv("PFC_TEST_BOOL", "true")
	t.Setenv("PFC_TEST_DURATION", "90s")

	require.Equal(t, "value", GetString("PFC_TEST_STRING", "fallback"))
	require.Equal(t, "fallback", GetString("PFC_TEST_MISSING", "fallback"))
	require.Equal(t, 42, GetInt("PFC_TEST_INT", 1))
	require.Equal(t, 1, GetInt("PFC_TEST_BAD_INT", 1))
	require.True(t, GetBool("PFC_TEST_BOOL", false))
	require.Equal(t, 90*time.Second, GetDuration("PFC_TEST_DURATION", time.Second))
	require.Equal(t, time.Second, GetDuration("PFC_TEST_MISSING", time.Second))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PFC_DOTENV_NEW=fromfile\nPFC_DOTENV_SET=fromfile\n"), 0o600))

	t.Setenv("PFC_DOTENV_SET", "fromenv")
	t.Cleanup(func() { os.Unsetenv("PFC_DOTENV_NEW") })

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	require.Equal(t, "fromfile", os.Getenv("PFC_DOTENV_NEW"))
	require.Equal(t, "fromenv", os.Getenv("PFC_DOTENV_SET"))
}
