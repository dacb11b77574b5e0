// Package main implements the jarvys CLI: the autonomous development agent
// loop, a single-cycle runner, and model routing diagnostics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jarvys",
	Short: "Autonomous development agent",
	Long: `jarvys is an autonomous development agent. Each cycle it fixes lint
issues, selects a task, generates code through a multi-provider model router,
tests the result, updates documentation, and either commits the work behind a
pull request or reflects on the failure and tries again.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/jarvys/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(modelsCmd)
}

func fail(err error) error {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return err
}
