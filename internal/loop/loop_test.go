package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/cycle"
)

type countingRunner struct {
	count atomic.Int64
	panic bool
}

func (c *countingRunner) RunCycle(context.Context, int) cycle.State {
	c.count.Add(1)
	if c.panic {
		panic("boom")
	}
	return cycle.State{Outcome: cycle.OutcomeCommitted}
}

type gateFunc func() bool

func (g gateFunc) Check() bool { return g() }

func TestRunner_MaxCyclesStopsLoop(t *testing.T) {
	cycles := &countingRunner{}
	r := NewRunner(Config{Interval: time.Millisecond, MaxCycles: 3}, cycles, nil, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	r.Wait()

	assert.Equal(t, int64(3), cycles.count.Load())
	assert.Equal(t, 3, r.Completed())
}

func TestRunner_StartTwiceFails(t *testing.T) {
	cycles := &countingRunner{}
	r := NewRunner(Config{Interval: time.Hour, MaxCycles: 100}, cycles, nil, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRunning)
	r.Stop()
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	cycles := &countingRunner{}
	r := NewRunner(Config{Interval: time.Hour, MaxCycles: 100}, cycles, nil, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	r.Stop()

	// The loop is restartable after a stop.
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}

func TestRunner_GateHaltsBeforeCycle(t *testing.T) {
	cycles := &countingRunner{}
	var polls atomic.Int64
	gate := gateFunc(func() bool {
		return polls.Add(1) <= 2
	})
	r := NewRunner(Config{Interval: time.Millisecond, MaxCycles: 100}, cycles, gate, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	r.Wait()

	// Two cycles ran before the third poll came back suspended.
	assert.Equal(t, int64(2), cycles.count.Load())
	assert.Equal(t, int64(3), polls.Load())
}

func TestRunner_PanickingCycleDoesNotKillLoop(t *testing.T) {
	cycles := &countingRunner{panic: true}
	r := NewRunner(Config{Interval: time.Millisecond, MaxCycles: 3}, cycles, nil, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	r.Wait()

	assert.Equal(t, int64(3), cycles.count.Load())
}

func TestRunner_ContextCancelStopsLoop(t *testing.T) {
	cycles := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(Config{Interval: time.Hour, MaxCycles: 100}, cycles, nil, zap.NewNop())

	require.NoError(t, r.Start(ctx))
	// Let the first cycle run, then cancel during the interval sleep.
	for cycles.count.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	r.Wait()

	assert.Equal(t, int64(1), cycles.count.Load())
}

func TestRunner_MaxRuntimeStopsLoop(t *testing.T) {
	cycles := &countingRunner{}
	r := NewRunner(Config{Interval: 5 * time.Millisecond, MaxRuntime: 20 * time.Millisecond}, cycles, nil, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	r.Wait()

	assert.Greater(t, cycles.count.Load(), int64(0))
	assert.Less(t, cycles.count.Load(), int64(50))
}
