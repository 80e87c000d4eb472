package logger

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetGlobal() {
	globalLogger.Store(nil)
}

func TestGlobalLogger_DefaultInitialization(t *testing.T) {
	resetGlobal()

	Info("test message", zap.String("key", "value"))

	if globalLogger.Load() == nil {
		t.Error("global logger should be initialized after calling Info")
	}
}

func TestGlobalLogger_SetGlobalLogger(t *testing.T) {
	resetGlobal()
	core, recorded := observer.New(zapcore.DebugLevel)
	SetGlobalLogger(zap.New(core, zap.AddCallerSkip(1)))

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	expected := []string{"debug message", "info message", "warn message", "error message"}
	entries := recorded.All()
	if len(entries) != len(expected) {
		t.Fatalf("expected %d log entries, got %d", len(expected), len(entries))
	}
	for i, entry := range entries {
		if entry.Message != expected[i] {
			t.Errorf("entry %d: expected message %q, got %q", i, expected[i], entry.Message)
		}
	}
}

func TestGlobalLogger_GetGlobalLoggerStable(t *testing.T) {
	resetGlobal()

	l1 := GetGlobalLogger()
	l2 := GetGlobalLogger()
	if l1 == nil || l1 != l2 {
		t.Error("GetGlobalLogger should return the same non-nil instance")
	}
}

func TestGlobalLogger_ConcurrentInitialization(t *testing.T) {
	resetGlobal()

	var wg sync.WaitGroup
	seen := make([]*zap.Logger, 50)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = GetGlobalLogger()
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(seen); i++ {
		if seen[i] != seen[0] {
			t.Fatalf("goroutine %d observed a different global logger", i)
		}
	}
}

func TestNew_SetsGlobalLogger(t *testing.T) {
	resetGlobal()

	if _, err := New(&Config{Level: "debug"}); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if globalLogger.Load() == nil {
		t.Error("global logger should be set after New")
	}
	Debug("global debug message")
}
