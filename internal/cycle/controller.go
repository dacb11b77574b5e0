package cycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
	"github.com/yannabadie/appia-dev/internal/githubx"
	"github.com/yannabadie/appia-dev/internal/memory"
	"github.com/yannabadie/appia-dev/internal/router"
	"github.com/yannabadie/appia-dev/internal/tasks"
	"github.com/yannabadie/appia-dev/internal/telemetry"
	"github.com/yannabadie/appia-dev/internal/toolchain"
)

// Generator is the model-routing surface the controller generates text
// through.
type Generator interface {
	Generate(ctx context.Context, prompt string, hint router.TaskType) (router.Response, error)
}

// TaskSource produces one task per cycle.
type TaskSource interface {
	Select(ctx context.Context) tasks.Task
}

// Toolchain runs local lint and test commands plus generated repair
// commands.
type Toolchain interface {
	RunLintAutoFix(ctx context.Context, dir string) (toolchain.Report, error)
	RunTests(ctx context.Context, dir string) (toolchain.Report, error)
	RunShell(ctx context.Context, dir, command string) (toolchain.Report, error)
}

// Committer performs local git operations.
type Committer interface {
	EnsureBranch(dir, name string) error
	CommitAll(dir, message string) (string, error)
	Push(ctx context.Context, dir, remote string, token config.Secret) error
}

// State is the mutable working state of one cycle.
type State struct {
	Stage         Stage
	Task          tasks.Task
	CodeGenerated string
	TestResult    string
	TestsPassed   bool
	DocUpdate     string
	Reflection    string
	LintFixed     bool
	LintAttempts  int
	Regenerations int
	Outcome       Outcome
	Log           LogEntry
}

// Config carries the cycle controller's operating parameters.
type Config struct {
	// WorkDir is the checkout the opening lint pass runs in.
	WorkDir string

	// WorkBranch is committed to and used as the pull-request head.
	WorkBranch string

	// BaseBranch is the pull-request base.
	BaseBranch string

	// PushToken authenticates git pushes.
	PushToken config.Secret

	// MaxLintAttempts bounds the lint-fix self-loop.
	MaxLintAttempts int

	// MaxRegenerations bounds how many times failing tests send the cycle
	// back to code generation.
	MaxRegenerations int
}

// Controller executes cycles. All collaborators are injected; the
// controller owns only the stage sequencing and the log entry.
type Controller struct {
	cfg       Config
	selector  TaskSource
	generator Generator
	tools     Toolchain
	git       Committer
	gh        githubx.Client
	store     memory.Store
	logger    *zap.Logger
}

// NewController wires a controller from its collaborators.
func NewController(cfg Config, selector TaskSource, generator Generator, tools Toolchain, git Committer, gh githubx.Client, store memory.Store, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		selector:  selector,
		generator: generator,
		tools:     tools,
		git:       git,
		gh:        gh,
		store:     store,
		logger:    logger,
	}
}

// RunCycle executes one full cycle. It always returns a final state; errors
// inside stages degrade to placeholder values and are visible only through
// the log entry.
func (c *Controller) RunCycle(ctx context.Context, number int) State {
	state := State{
		Stage: StageLintFix,
		Log:   LogEntry{Cycle: number},
	}

	c.runStage(ctx, &state, StageLintFix, c.lintFix)
	c.runStage(ctx, &state, StageIdentifyTask, c.identifyTask)

	for {
		c.runStage(ctx, &state, StageGenerateCode, c.generateCode)
		c.runStage(ctx, &state, StageApplyAndTest, c.applyAndTest)
		c.runStage(ctx, &state, StageUpdateDocs, c.updateDocs)

		again := false
		c.runStage(ctx, &state, StageReflectOrCommit, func(ctx context.Context, s *State) {
			again = c.reflectOrCommit(ctx, s)
		})
		if !again {
			break
		}
	}

	telemetry.CyclesTotal.WithLabelValues(string(state.Outcome)).Inc()
	c.logger.Info("cycle finished",
		zap.Int("cycle", number),
		zap.String("outcome", string(state.Outcome)),
		zap.String("task", state.Task.Description))
	return state
}

func (c *Controller) runStage(ctx context.Context, state *State, stage Stage, fn func(context.Context, *State)) {
	state.Stage = stage
	start := time.Now()
	fn(ctx, state)
	telemetry.RecordStage(string(stage), time.Since(start))
}

// lintFix self-loops until the checker reports a clean tree or the attempt
// budget runs out. A lint command that cannot run at all asks the router for
// a shell fix and records it before re-checking.
func (c *Controller) lintFix(ctx context.Context, state *State) {
	for state.LintAttempts < c.cfg.MaxLintAttempts {
		state.LintAttempts++

		report, err := c.tools.RunLintAutoFix(ctx, c.cfg.WorkDir)
		entry := state.Log.Clone()
		entry.LintOutput += truncate(report.Output, 200) + "\n"

		if err != nil {
			prompt := fmt.Sprintf(
				"Error running lint auto-fix: %v. Generate a single shell command that repairs the lint toolchain. Respond with the command only.", err)
			if resp, gerr := c.generator.Generate(ctx, prompt, router.TaskCoding); gerr == nil {
				entry.AdaptFix = truncate(resp.Text, 200)
				fixReport, ferr := c.tools.RunShell(ctx, c.cfg.WorkDir, resp.Text)
				if ferr != nil {
					c.logger.Warn("toolchain repair command failed to run", zap.Error(ferr))
				} else if !fixReport.Clean {
					c.logger.Warn("toolchain repair command exited non-zero",
						zap.String("output", truncate(fixReport.Output, 200)))
				}
			} else {
				c.logger.Warn("lint adapt-fix generation failed", zap.Error(gerr))
			}
		}

		state.Log = entry
		c.store.AppendLog(ctx, entry)

		if err == nil && report.Clean {
			state.LintFixed = true
			return
		}
	}

	// Budget exhausted: proceed anyway and record the unresolved state.
	entry := state.Log.Clone()
	entry.SetExtra("lint_unresolved", "true")
	state.Log = entry
	c.store.AppendLog(ctx, entry)
}

func (c *Controller) identifyTask(ctx context.Context, state *State) {
	state.Task = c.selector.Select(ctx)

	entry := state.Log.Clone()
	entry.Task = state.Task.Description
	entry.Repo = state.Task.Repo.String()
	entry.Status = "identified"
	entry.Timestamp = time.Now().Format("2006-01-02 15:04:05")
	state.Log = entry
	c.store.AppendLog(ctx, entry)
}

func (c *Controller) generateCode(ctx context.Context, state *State) {
	prompt := fmt.Sprintf("Generate code for %q targeting repository %s.", state.Task.Description, state.Task.Repo)
	if state.Reflection != "" {
		prompt += " Previous attempt failed. Reflection on the failure: " + state.Reflection
	}

	resp, err := c.generator.Generate(ctx, prompt, router.TaskCoding)
	if err != nil {
		// Total provider unavailability degrades to empty code.
		c.logger.Warn("code generation failed", zap.Error(err))
		state.CodeGenerated = ""
		entry := state.Log.Clone()
		entry.SetExtra("generation_error", truncate(err.Error(), 200))
		state.Log = entry
		c.store.AppendLog(ctx, entry)
		return
	}
	state.CodeGenerated = resp.Text

	entry := state.Log.Clone()
	entry.SetExtra("generation_model", resp.Model)
	state.Log = entry
	c.store.AppendLog(ctx, entry)
}

// applyAndTest writes the generated code into the target checkout, re-runs
// the lint fixer over it, and captures the test output.
func (c *Controller) applyAndTest(ctx context.Context, state *State) {
	dir := filepath.Join(state.Task.Dir, "generated")
	path := filepath.Join(dir, safeFileName(state.Task.Description)+".go")

	if err := os.MkdirAll(dir, 0o755); err == nil {
		err = os.WriteFile(path, []byte(state.CodeGenerated), 0o644)
		if err != nil {
			state.TestResult = fmt.Sprintf("FAILED: could not write generated file: %v", err)
			state.TestsPassed = false
			c.persistTestResult(ctx, state)
			return
		}
	} else {
		state.TestResult = fmt.Sprintf("FAILED: could not create output directory: %v", err)
		state.TestsPassed = false
		c.persistTestResult(ctx, state)
		return
	}

	if _, err := c.tools.RunLintAutoFix(ctx, state.Task.Dir); err != nil {
		c.logger.Warn("post-generation lint failed", zap.Error(err))
	}

	report, err := c.tools.RunTests(ctx, state.Task.Dir)
	if err != nil {
		state.TestResult = fmt.Sprintf("FAILED: test run did not start: %v", err)
		state.TestsPassed = false
	} else {
		state.TestResult = report.Output
		state.TestsPassed = !report.Failed()
	}
	c.persistTestResult(ctx, state)
}

func (c *Controller) persistTestResult(ctx context.Context, state *State) {
	entry := state.Log.Clone()
	entry.TestResult = truncate(state.TestResult, 500)
	state.Log = entry
	c.store.AppendLog(ctx, entry)
}

func (c *Controller) updateDocs(ctx context.Context, state *State) {
	prompt := fmt.Sprintf(
		"Generate a Markdown documentation update for %q. Sections: Description, Changes, Impact, Examples.",
		state.Task.Description)

	resp, err := c.generator.Generate(ctx, prompt, router.TaskCreative)
	if err != nil {
		c.logger.Warn("docs generation failed", zap.Error(err))
		state.DocUpdate = ""
	} else {
		state.DocUpdate = resp.Text
		fragment := fmt.Sprintf("\n## Update: %s (%s)\n%s\n",
			state.Task.Description, time.Now().Format("2006-01-02"), state.DocUpdate)
		readme := filepath.Join(state.Task.Dir, "README.md")
		if err := appendFile(readme, fragment); err != nil {
			c.logger.Warn("failed to append README update", zap.Error(err))
		}
	}

	entry := state.Log.Clone()
	entry.DocUpdate = truncate(state.DocUpdate, 500)
	state.Log = entry
	c.store.AppendLog(ctx, entry)
}

// reflectOrCommit either routes the cycle back to code generation after a
// test failure, or commits the work, pushes it, and opens a pull request.
// Returns true when the cycle should generate again.
func (c *Controller) reflectOrCommit(ctx context.Context, state *State) bool {
	failed := !state.TestsPassed || strings.Contains(state.TestResult, "FAILED")

	if failed && state.Regenerations < c.cfg.MaxRegenerations {
		state.Regenerations++

		prompt := fmt.Sprintf(
			"Reflect on this failed test output and describe how to improve the code: %s",
			truncate(state.TestResult, 1000))
		resp, err := c.generator.Generate(ctx, prompt, router.TaskReasoning)
		if err != nil {
			c.logger.Warn("reflection generation failed", zap.Error(err))
			state.Reflection = ""
		} else {
			state.Reflection = resp.Text
		}

		entry := state.Log.Clone()
		entry.Reflection = truncate(state.Reflection, 500)
		state.Log = entry
		c.store.AppendLog(ctx, entry)
		return true
	}

	if failed {
		entry := state.Log.Clone()
		entry.Status = "degraded"
		state.Log = entry
		c.store.AppendLog(ctx, entry)
		state.Outcome = OutcomeDegraded
		return false
	}

	c.commitAndPublish(ctx, state)
	state.Outcome = OutcomeCommitted
	return false
}

// commitAndPublish runs the git and GitHub side of a successful cycle. Each
// step is best effort; a failure is logged and the remaining steps still
// run.
func (c *Controller) commitAndPublish(ctx context.Context, state *State) {
	dir := state.Task.Dir
	message := "Auto: " + truncate(state.Task.Description, 50) + " with docs"

	if err := c.git.EnsureBranch(dir, c.cfg.WorkBranch); err != nil {
		c.logger.Warn("failed to switch to work branch", zap.Error(err))
	}
	if _, err := c.git.CommitAll(dir, message); err != nil {
		c.logger.Warn("commit failed", zap.Error(err))
	}
	if err := c.git.Push(ctx, dir, "origin", c.cfg.PushToken); err != nil {
		c.logger.Warn("push failed", zap.Error(err))
	}

	entry := state.Log.Clone()

	title := "Agent: " + truncate(state.Task.Description, 50)
	body := fmt.Sprintf("Code:\n%s\n\nDocs:\n%s",
		truncate(state.CodeGenerated, 500), truncate(state.DocUpdate, 500))
	prURL, err := c.gh.OpenPullRequest(ctx, state.Task.Repo, title, body, c.cfg.WorkBranch, c.cfg.BaseBranch)
	if err != nil {
		c.logger.Warn("pull request creation failed", zap.Error(err))
		entry.PRURL = "pull request creation failed"
	} else {
		entry.PRURL = prURL
	}

	// Transparency issue carrying the full cycle log.
	issueTitle := "Agent log: " + truncate(state.Task.Description, 50) + " completed"
	if _, err := c.gh.CreateIssue(ctx, state.Task.Repo, issueTitle, truncate(fmt.Sprintf("%+v", entry), 1000)); err != nil {
		c.logger.Warn("transparency issue creation failed", zap.Error(err))
	}

	entry.Status = "completed"
	state.Log = entry
	c.store.AppendLog(ctx, entry)
}

var nonWord = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// safeFileName derives a filesystem-safe name from a task description,
// suffixed with a short unique id to avoid collisions across cycles.
func safeFileName(task string) string {
	name := nonWord.ReplaceAllString(task, "_")
	name = strings.Trim(name, "_")
	if len(name) > 30 {
		name = name[:30]
	}
	if name == "" {
		name = "task"
	}
	return name + "_" + uuid.NewString()[:8]
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
