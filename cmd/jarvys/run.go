package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/logging"
	"github.com/yannabadie/appia-dev/internal/loop"
	"github.com/yannabadie/appia-dev/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent loop with the HTTP server and model watcher",
	Long: `Run the continuous agent loop. Cycles execute sequentially with a
pause between them, bounded by loop.max_cycles and loop.max_runtime. The HTTP
server exposes /healthz, /status and /metrics while the loop runs, and the
model watcher keeps the catalogue in sync with provider listings.

The loop halts early when the confidence governor suspends the agent; it then
waits for a human to review the filed escalation before the process exits.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	defer logging.Sync(logger) //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ag, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}

	runner := loop.NewRunner(loop.Config{
		Interval:   cfg.Loop.Interval,
		MaxCycles:  cfg.Loop.MaxCycles,
		MaxRuntime: cfg.Loop.MaxRuntime,
	}, ag.controller, ag.governor, logger.Named("loop"))

	srv := server.New(cfg.Server, runner, ag.governor, ag.router.History(), logger.Named("server"))
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	if ag.watcher != nil {
		if err := ag.watcher.Start(); err != nil {
			logger.Warn("model watcher failed to start", zap.Error(err))
		} else {
			defer ag.watcher.Stop()
		}
	}

	if err := runner.Start(ctx); err != nil {
		return fail(err)
	}

	runner.Wait()
	cancel()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}

	logger.Info("agent stopped",
		zap.Int("cycles_completed", runner.Completed()),
		zap.Bool("waiting_for_human_review", ag.governor.WaitingForHumanReview()))
	return nil
}
