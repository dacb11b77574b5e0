// Package toolchain runs local lint and test commands and performs git
// operations on the working-tree checkouts the agent mutates.
package toolchain

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultCommandTimeout = 5 * time.Minute

// Report is the captured outcome of one lint or test run.
type Report struct {
	Command string
	Output  string

	// Clean is true when the command exited zero.
	Clean bool
}

// Failed reports whether the run found problems.
func (r Report) Failed() bool {
	return !r.Clean
}

// FailingLines extracts the failure lines from the captured output. It
// recognizes both pytest-style "FAILED" markers and go test "--- FAIL"
// markers.
func (r Report) FailingLines() []string {
	var out []string
	for _, line := range strings.Split(r.Output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "FAILED") || strings.HasPrefix(trimmed, "--- FAIL") {
			out = append(out, trimmed)
		}
	}
	return out
}

// Runner executes the lint and test commands for a checkout.
type Runner struct {
	lintCmd []string
	testCmd []string
	timeout time.Duration
	logger  *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLintCommand overrides the lint auto-fix command.
func WithLintCommand(argv ...string) RunnerOption {
	return func(r *Runner) { r.lintCmd = argv }
}

// WithTestCommand overrides the test command.
func WithTestCommand(argv ...string) RunnerOption {
	return func(r *Runner) { r.testCmd = argv }
}

// WithCommandTimeout bounds each command invocation.
func WithCommandTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner returns a runner with golangci-lint and go test defaults.
func NewRunner(logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		lintCmd: []string{"golangci-lint", "run", "--fix", "./..."},
		testCmd: []string{"go", "test", "./..."},
		timeout: defaultCommandTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunLintAutoFix runs the lint command with auto-fix in dir. A non-zero exit
// produces a dirty report, not an error; errors are reserved for the command
// failing to run at all.
func (r *Runner) RunLintAutoFix(ctx context.Context, dir string) (Report, error) {
	return r.run(ctx, dir, r.lintCmd)
}

// RunTests runs the test command in dir.
func (r *Runner) RunTests(ctx context.Context, dir string) (Report, error) {
	return r.run(ctx, dir, r.testCmd)
}

// RunShell executes an arbitrary shell command in dir. It exists for
// generated toolchain repairs, where the command is composed at runtime
// rather than configured up front.
func (r *Runner) RunShell(ctx context.Context, dir, command string) (Report, error) {
	return r.run(ctx, dir, []string{"sh", "-c", command})
}

func (r *Runner) run(ctx context.Context, dir string, argv []string) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()

	report := Report{
		Command: strings.Join(argv, " "),
		Output:  string(output),
		Clean:   err == nil,
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// The command did not run: missing binary, bad dir, canceled context.
		return report, err
	}

	r.logger.Debug("command completed",
		zap.String("command", report.Command),
		zap.String("dir", dir),
		zap.Bool("clean", report.Clean))
	return report, nil
}
