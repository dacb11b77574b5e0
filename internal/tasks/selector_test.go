package tasks

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/githubx"
	"github.com/yannabadie/appia-dev/internal/toolchain"
)

type fakeGitHub struct {
	githubx.Client
	issues map[string][]githubx.Issue
	err    error
}

func (f *fakeGitHub) ListOpenIssues(_ context.Context, repo githubx.Repo) ([]githubx.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.issues[repo.String()], nil
}

func newSelector(t *testing.T, gh githubx.Client, seed int64) *Selector {
	t.Helper()
	runner := toolchain.NewRunner(zap.NewNop(),
		toolchain.WithTestCommand("sh", "-c", "echo ok"))
	return NewSelector(
		RepoTarget{Repo: githubx.Repo{Owner: "o", Name: "dev"}, Dir: t.TempDir()},
		RepoTarget{Repo: githubx.Repo{Owner: "o", Name: "companion"}, Dir: t.TempDir()},
		gh, runner, rand.New(rand.NewSource(seed)), zap.NewNop())
}

func TestSelect_AlwaysReturnsTask(t *testing.T) {
	s := newSelector(t, &fakeGitHub{}, 1)

	for i := 0; i < 20; i++ {
		task := s.Select(context.Background())
		assert.NotEmpty(t, task.Description)
		assert.NotEmpty(t, task.Repo.Name)
		assert.NotEmpty(t, task.Dir)
	}
}

func TestSelect_DeterministicWithSeed(t *testing.T) {
	gh := &fakeGitHub{issues: map[string][]githubx.Issue{
		"o/dev": {{Number: 1, Title: "Fix config reload"}},
	}}

	first := newSelector(t, gh, 42)
	second := newSelector(t, gh, 42)

	// Same seed, same checkout dirs aside, selection must match.
	for i := 0; i < 10; i++ {
		a := first.Select(context.Background())
		b := second.Select(context.Background())
		assert.Equal(t, a.Description, b.Description)
		assert.Equal(t, a.Primary, b.Primary)
	}
}

func TestSelect_IssueTitlesEnterPool(t *testing.T) {
	gh := &fakeGitHub{issues: map[string][]githubx.Issue{
		"o/dev":       {{Number: 1, Title: "dev issue"}},
		"o/companion": {{Number: 2, Title: "companion issue"}},
	}}
	s := newSelector(t, gh, 7)

	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		seen[s.Select(context.Background()).Description] = true
	}
	assert.True(t, seen["dev issue"] || seen["companion issue"],
		"issue titles should be selectable")
	for _, m := range maintenanceTasks {
		assert.True(t, seen[m], "maintenance task %q should be selectable", m)
	}
}

func TestSelect_FailingTestsEnterPool(t *testing.T) {
	runner := toolchain.NewRunner(zap.NewNop(),
		toolchain.WithTestCommand("sh", "-c", "echo 'FAILED tests/test_memory.py::test_prune'; exit 1"))
	s := NewSelector(
		RepoTarget{Repo: githubx.Repo{Owner: "o", Name: "dev"}, Dir: t.TempDir()},
		RepoTarget{Repo: githubx.Repo{Owner: "o", Name: "companion"}, Dir: t.TempDir()},
		&fakeGitHub{}, runner, rand.New(rand.NewSource(3)), zap.NewNop())

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[s.Select(context.Background()).Description] = true
	}
	assert.True(t, seen["FAILED tests/test_memory.py::test_prune"])
}

func TestSelect_CompanionTaskOnlyForPrimary(t *testing.T) {
	s := newSelector(t, &fakeGitHub{}, 11)

	for i := 0; i < 300; i++ {
		task := s.Select(context.Background())
		if task.Description == companionTask {
			assert.True(t, task.Primary, "companion task must target the primary repo")
		}
	}
}

func TestSelect_SurvivesIssueListingFailure(t *testing.T) {
	s := newSelector(t, &fakeGitHub{err: errors.New("api down")}, 5)

	task := s.Select(context.Background())
	require.NotEmpty(t, task.Description)
}

func TestSampleCreative_DrawsOneOrTwo(t *testing.T) {
	s := newSelector(t, &fakeGitHub{}, 9)

	for i := 0; i < 50; i++ {
		sample := s.sampleCreative()
		assert.GreaterOrEqual(t, len(sample), 1)
		assert.LessOrEqual(t, len(sample), 2)
		if len(sample) == 2 {
			assert.NotEqual(t, sample[0], sample[1])
		}
	}
}
