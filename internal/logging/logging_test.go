package logging

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	prev := global.Load()
	t.Cleanup(func() { global.Store(prev) })

	core, logs := observer.New(zapcore.DebugLevel)
	set(zap.New(core, zap.AddCaller()))
	return logs
}

func TestCallerIsTheLoggingSite(t *testing.T) {
	r := require.New(t)
	logs := observe(t)

	L().With(zap.String("path", "boats")).Info("direct")
	Info("helper")
	WithContext(WithRequestID(context.Background(), "req-1")).Info("scoped")

	entries := logs.All()
	r.Len(entries, 3)
	for _, e := range entries {
		r.True(e.Caller.Defined, e.Message)
		r.Equal("logging_test.go", filepath.Base(e.Caller.File), e.Message)
	}
}

func TestReinitWhileLogging(t *testing.T) {
	observe(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				L().Debug("tick")
				Debug("tick")
			}
		}()
	}
	InitNop()
	wg.Wait()
	require.NotNil(t, L())
}
