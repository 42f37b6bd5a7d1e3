// Package testutil holds shared helpers for package tests.
package testutil

import (
	"testing"

	"github.com/xdpzq/centralgpt/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewStore returns an in-memory store closed when the test ends.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// NewObservedLogger returns a logger whose entries at level and above are
// captured for assertions.
func NewObservedLogger(level zapcore.LevelEnabler) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
