package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yannabadie/appia-dev/internal/logging"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single cycle and exit",
	Long: `Run exactly one agent cycle: lint fix, task selection, code
generation, testing, documentation, and commit or reflection. Useful for
scheduled execution and debugging.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
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

	if !ag.governor.Check() {
		return fail(fmt.Errorf("agent suspended, waiting for human review"))
	}

	state := ag.controller.RunCycle(ctx, 1)

	fmt.Printf("Cycle finished: outcome=%s task=%q status=%s\n",
		state.Outcome, state.Task.Description, state.Log.Status)
	if state.Log.PRURL != "" {
		fmt.Println("Pull request:", state.Log.PRURL)
	}
	return nil
}
