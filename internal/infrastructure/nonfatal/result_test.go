package nonfatal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResultLogsOnlyFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	ok := OK("audit.record").Log(logger)
	require.True(t, ok.OK())
	require.Equal(t, 0, logs.Len())

	failed := Fail("audit.record", errors.New("db down")).Log(logger, zap.String("action", "SESSION_DELETED"))
	require.False(t, failed.OK())
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	require.Equal(t, "audit.record", entry.ContextMap()["op"])
	require.Equal(t, "SESSION_DELETED", entry.ContextMap()["action"])
}

func TestResultLogToleratesNilLogger(t *testing.T) {
	r := From("stats.increment", errors.New("boom"))
	require.NotPanics(t, func() { r.Log(nil) })
}
