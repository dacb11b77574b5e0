package githubx

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/yannabadie/appia-dev/internal/config"
)

// GitHub implements Client against the GitHub REST API with retry on
// transient failures.
type GitHub struct {
	gh     *github.Client
	logger *zap.Logger
}

var _ Client = (*GitHub)(nil)

// New creates a GitHub client authenticated with the given token.
func New(ctx context.Context, token config.Secret, logger *zap.Logger) (*GitHub, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("GitHub token not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return &GitHub{gh: github.NewClient(tc), logger: logger}, nil
}

// NewFromClient wraps an already-constructed API client. Used by tests to
// point at a fake server.
func NewFromClient(gh *github.Client, logger *zap.Logger) *GitHub {
	return &GitHub{gh: gh, logger: logger}
}

func (g *GitHub) ListOpenIssues(ctx context.Context, repo Repo) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var out []Issue
	for {
		var issues []*github.Issue
		var resp *github.Response
		err := retryOperation(ctx, g.logger, func() (*github.Response, error) {
			var err error
			issues, resp, err = g.gh.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list issues for %s: %w", repo, err)
		}

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			labels := make([]string, 0, len(issue.Labels))
			for _, l := range issue.Labels {
				labels = append(labels, l.GetName())
			}
			out = append(out, Issue{
				Number: issue.GetNumber(),
				Title:  issue.GetTitle(),
				Body:   issue.GetBody(),
				Labels: labels,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (g *GitHub) CreateBranch(ctx context.Context, repo Repo, name, fromRef string) error {
	var base *github.Reference
	err := retryOperation(ctx, g.logger, func() (*github.Response, error) {
		var err error
		var resp *github.Response
		base, resp, err = g.gh.Git.GetRef(ctx, repo.Owner, repo.Name, "refs/heads/"+fromRef)
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("failed to resolve ref %s on %s: %w", fromRef, repo, err)
	}

	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: base.Object,
	}
	err = retryOperation(ctx, g.logger, func() (*github.Response, error) {
		_, resp, err := g.gh.Git.CreateRef(ctx, repo.Owner, repo.Name, ref)
		return resp, err
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create branch %s on %s: %w", name, repo, err)
	}

	g.logger.Info("branch created",
		zap.String("repo", repo.String()),
		zap.String("branch", name),
		zap.String("from", fromRef))
	return nil
}

func (g *GitHub) CommitFile(ctx context.Context, repo Repo, branch, path string, content []byte, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(branch),
	}

	// An existing file needs its blob SHA to be updated in place.
	var existing *github.RepositoryContent
	_ = retryOperation(ctx, g.logger, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		existing, _, resp, err = g.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path,
			&github.RepositoryContentGetOptions{Ref: branch})
		return resp, err
	})
	if existing != nil {
		opts.SHA = existing.SHA
	}

	err := retryOperation(ctx, g.logger, func() (*github.Response, error) {
		_, resp, err := g.gh.Repositories.CreateFile(ctx, repo.Owner, repo.Name, path, opts)
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("failed to commit %s to %s@%s: %w", path, repo, branch, err)
	}

	g.logger.Info("file committed",
		zap.String("repo", repo.String()),
		zap.String("branch", branch),
		zap.String("path", path))
	return nil
}

func (g *GitHub) OpenPullRequest(ctx context.Context, repo Repo, title, body, head, base string) (string, error) {
	var pr *github.PullRequest
	err := retryOperation(ctx, g.logger, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		pr, resp, err = g.gh.PullRequests.Create(ctx, repo.Owner, repo.Name, &github.NewPullRequest{
			Title: github.String(title),
			Body:  github.String(body),
			Head:  github.String(head),
			Base:  github.String(base),
		})
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("failed to open pull request on %s: %w", repo, err)
	}

	g.logger.Info("pull request opened",
		zap.String("repo", repo.String()),
		zap.String("url", pr.GetHTMLURL()))
	return pr.GetHTMLURL(), nil
}

func (g *GitHub) CreateIssue(ctx context.Context, repo Repo, title, body string) (int, error) {
	var issue *github.Issue
	err := retryOperation(ctx, g.logger, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		issue, resp, err = g.gh.Issues.Create(ctx, repo.Owner, repo.Name, &github.IssueRequest{
			Title: github.String(title),
			Body:  github.String(body),
		})
		return resp, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create issue on %s: %w", repo, err)
	}

	g.logger.Info("issue created",
		zap.String("repo", repo.String()),
		zap.Int("number", issue.GetNumber()))
	return issue.GetNumber(), nil
}
