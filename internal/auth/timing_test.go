package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_PadsToBase(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AlreadyElapsed(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50})
	startTime := time.Now().Add(-200 * time.Millisecond)

	before := time.Now()
	timing.WaitFrom(context.Background(), startTime)

	assert.Less(t, time.Since(before), 10*time.Millisecond)
}

func TestTimingDelay_WaitFrom_ContextCancelled(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 5000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := time.Now()
	timing.WaitFrom(ctx, time.Now())

	assert.Less(t, time.Since(before), 50*time.Millisecond)
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var timing *auth.TimingDelay
	before := time.Now()
	timing.WaitFrom(context.Background(), time.Now())
	assert.Less(t, time.Since(before), 10*time.Millisecond)
}
