// Package loop drives the agent's continuous operation: it runs cycles
// sequentially, sleeps between them, and stops when a cap is reached or the
// escalation governor suspends the agent.
package loop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/cycle"
)

// CycleRunner executes one cycle and reports its final state.
type CycleRunner interface {
	RunCycle(ctx context.Context, number int) cycle.State
}

// Gate is polled once per iteration before a cycle starts. A false result
// halts the loop.
type Gate interface {
	Check() bool
}

// Config bounds a run.
type Config struct {
	// Interval is the pause between cycles.
	Interval time.Duration

	// MaxCycles stops the loop after that many cycles. Zero means unbounded.
	MaxCycles int

	// MaxRuntime stops the loop once the wall clock budget is spent. Zero
	// means unbounded.
	MaxRuntime time.Duration
}

// Runner owns the cycle loop lifecycle.
type Runner struct {
	cfg    Config
	cycles CycleRunner
	gate   Gate
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	completed int
}

// NewRunner builds a loop runner. The gate may be nil, in which case no
// suspension check is performed.
func NewRunner(cfg Config, cycles CycleRunner, gate Gate, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		cycles: cycles,
		gate:   gate,
		logger: logger,
	}
}

// Start launches the loop in a background goroutine. It returns an error if
// the loop is already running.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.run(ctx, r.stopCh, r.doneCh)
	return nil
}

// Stop signals the loop to halt and waits for the in-flight cycle to finish.
// It is safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
}

// Wait blocks until the loop exits on its own or via Stop. It returns
// immediately if the loop was never started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.doneCh
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Completed reports how many cycles have finished.
func (r *Runner) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func (r *Runner) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	deadline := time.Time{}
	if r.cfg.MaxRuntime > 0 {
		deadline = time.Now().Add(r.cfg.MaxRuntime)
	}

	for number := 1; ; number++ {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if r.cfg.MaxCycles > 0 && number > r.cfg.MaxCycles {
			r.logger.Info("cycle cap reached", zap.Int("max_cycles", r.cfg.MaxCycles))
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			r.logger.Info("runtime budget spent", zap.Duration("max_runtime", r.cfg.MaxRuntime))
			return
		}
		if r.gate != nil && !r.gate.Check() {
			r.logger.Warn("loop halted, waiting for human review")
			return
		}

		r.runOne(ctx, number)

		r.mu.Lock()
		r.completed++
		r.mu.Unlock()

		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.Interval):
		}
	}
}

// runOne isolates a single cycle so a panic inside it is contained and the
// loop keeps going.
func (r *Runner) runOne(ctx context.Context, number int) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("cycle panicked", zap.Int("cycle", number), zap.Any("panic", rec))
		}
	}()
	r.cycles.RunCycle(ctx, number)
}
