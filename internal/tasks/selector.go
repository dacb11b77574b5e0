// Package tasks picks what the agent works on each cycle: open issues,
// failing tests, standing maintenance work, and sampled creative work.
package tasks

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/githubx"
	"github.com/yannabadie/appia-dev/internal/toolchain"
)

// Task is one unit of work targeting a specific repository checkout.
type Task struct {
	Description string
	Repo        githubx.Repo
	Dir         string

	// Primary is true when the task targets the development repository
	// rather than the companion repository.
	Primary bool
}

// maintenanceTasks are always candidates regardless of repository state.
var maintenanceTasks = []string{
	"Optimize costs >$3",
	"Add memory pruning",
	"Implement Docker hybrid",
}

// creativeTasks are sampled one or two at a time to keep the agent
// exploring beyond its backlog.
var creativeTasks = []string{
	"Add user sentiment analysis (creative: mood prediction)",
	"Integrate quantum simulation routing (creative: qubit decisions)",
	"Proactive: Auto-fine-tune LLM on feedback",
	"Smart load balancing across LLM endpoints",
	"Automated code quality improvement system",
	"Real-time performance monitoring dashboard",
}

// companionTask is appended when the primary repository is selected.
const companionTask = "Generate/update the companion agent code and push it to the companion repository"

// fallbackTask guarantees Select always returns work.
const fallbackTask = "Proactive: Propose new feature architecture"

// RepoTarget names one selectable repository checkout.
type RepoTarget struct {
	Repo githubx.Repo
	Dir  string
}

// Selector builds the candidate pool and picks one task at random. The
// random source is injected so selection is reproducible in tests.
type Selector struct {
	primary   RepoTarget
	secondary RepoTarget
	gh        githubx.Client
	runner    *toolchain.Runner
	rng       *rand.Rand
	logger    *zap.Logger
}

// NewSelector returns a selector over the two target repositories. A nil rng
// gets a time-seeded source.
func NewSelector(primary, secondary RepoTarget, gh githubx.Client, runner *toolchain.Runner, rng *rand.Rand, logger *zap.Logger) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{
		primary:   primary,
		secondary: secondary,
		gh:        gh,
		runner:    runner,
		rng:       rng,
		logger:    logger,
	}
}

// Select produces exactly one task. Issue listing and test runs that fail
// are logged and contribute nothing to the pool; the maintenance list and
// the fixed fallback guarantee a non-empty result.
func (s *Selector) Select(ctx context.Context) Task {
	isPrimary := s.rng.Intn(2) == 0
	target := s.secondary
	if isPrimary {
		target = s.primary
	}

	var pool []string

	issues, err := s.gh.ListOpenIssues(ctx, target.Repo)
	if err != nil {
		s.logger.Warn("failed to list open issues",
			zap.String("repo", target.Repo.String()), zap.Error(err))
	}
	for _, issue := range issues {
		pool = append(pool, issue.Title)
	}

	report, err := s.runner.RunTests(ctx, target.Dir)
	if err != nil {
		s.logger.Warn("test run failed during task selection",
			zap.String("dir", target.Dir), zap.Error(err))
	} else {
		pool = append(pool, report.FailingLines()...)
	}

	pool = append(pool, maintenanceTasks...)
	pool = append(pool, s.sampleCreative()...)

	if isPrimary {
		pool = append(pool, companionTask)
	}

	description := fallbackTask
	if len(pool) > 0 {
		description = pool[s.rng.Intn(len(pool))]
	}

	s.logger.Info("task selected",
		zap.String("repo", target.Repo.String()),
		zap.Bool("primary", isPrimary),
		zap.Int("pool_size", len(pool)),
		zap.String("task", description))

	return Task{
		Description: description,
		Repo:        target.Repo,
		Dir:         target.Dir,
		Primary:     isPrimary,
	}
}

// sampleCreative draws one or two creative tasks without replacement.
func (s *Selector) sampleCreative() []string {
	n := 1 + s.rng.Intn(2)
	perm := s.rng.Perm(len(creativeTasks))

	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, creativeTasks[idx])
	}
	return out
}
