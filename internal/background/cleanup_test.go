package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) Prune(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 1, p.err
}

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) CleanupExpired() int {
	c.calls.Add(1)
	return 0
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupManager_RunsUntilStopped(t *testing.T) {
	pruner := &countingPruner{}
	cleaner := &countingCleaner{}
	cm := NewCleanupManager(pruner, cleaner, discard(), 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return pruner.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cm.Stop()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
	assert.GreaterOrEqual(t, cleaner.calls.Load(), int32(3))
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	pruner := &countingPruner{err: errors.New("store unavailable")}
	cm := NewCleanupManager(pruner, &countingCleaner{}, discard(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pruner.calls.Load() == 1 }, time.Second, time.Millisecond, "runs once on start")
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}
