package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunner_CleanRun(t *testing.T) {
	r := NewRunner(zap.NewNop(),
		WithLintCommand("sh", "-c", "echo no issues found"))

	report, err := r.RunLintAutoFix(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, report.Clean)
	assert.False(t, report.Failed())
	assert.Contains(t, report.Output, "no issues found")
}

func TestRunner_NonZeroExitIsDirtyNotError(t *testing.T) {
	r := NewRunner(zap.NewNop(),
		WithTestCommand("sh", "-c", "echo '--- FAIL: TestSomething'; exit 1"))

	report, err := r.RunTests(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, report.Failed())
}

func TestRunner_MissingBinaryIsError(t *testing.T) {
	r := NewRunner(zap.NewNop(),
		WithLintCommand("definitely-not-a-real-binary-xyz"))

	_, err := r.RunLintAutoFix(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestRunner_RunShell(t *testing.T) {
	r := NewRunner(zap.NewNop())
	dir := t.TempDir()

	report, err := r.RunShell(context.Background(), dir, "touch repaired.txt")
	require.NoError(t, err)
	assert.True(t, report.Clean)
	assert.FileExists(t, filepath.Join(dir, "repaired.txt"))

	report, err = r.RunShell(context.Background(), dir, "exit 3")
	require.NoError(t, err)
	assert.True(t, report.Failed())
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner(zap.NewNop(),
		WithTestCommand("sleep", "5"),
		WithCommandTimeout(50*time.Millisecond))

	report, err := r.RunTests(context.Background(), t.TempDir())
	if err == nil {
		assert.True(t, report.Failed())
	}
}

func TestReport_FailingLines(t *testing.T) {
	report := Report{Output: "=== RUN   TestA\n--- FAIL: TestA (0.01s)\nFAILED tests/test_api.py::test_auth\nok\n"}

	lines := report.FailingLines()
	require.Len(t, lines, 2)
	assert.Equal(t, "--- FAIL: TestA (0.01s)", lines[0])
	assert.Equal(t, "FAILED tests/test_api.py::test_auth", lines[1])
}

func TestReport_NoFailingLines(t *testing.T) {
	report := Report{Output: "ok  \tgithub.com/yannabadie/appia-dev\t0.1s\n", Clean: true}
	assert.Empty(t, report.FailingLines())
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestGit_CommitAll(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	g := NewGit("jarvys", "jarvys@example.com", zap.NewNop())
	hash, err := g.CommitAll(dir, "add main")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// Clean tree on the second pass.
	_, err = g.CommitAll(dir, "nothing")
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestGit_EnsureBranch(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	g := NewGit("jarvys", "jarvys@example.com", zap.NewNop())
	_, err := g.CommitAll(dir, "initial")
	require.NoError(t, err)

	require.NoError(t, g.EnsureBranch(dir, "agent-evolution"))
	// Idempotent once the branch exists.
	require.NoError(t, g.EnsureBranch(dir, "agent-evolution"))
}
