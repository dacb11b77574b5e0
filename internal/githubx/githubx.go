// Package githubx wraps the GitHub API operations the agent needs: reading
// open issues, pushing generated files, and opening pull requests and issues.
package githubx

import (
	"context"
	"fmt"
	"strings"
)

// Repo identifies a repository as "owner/name".
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo splits an "owner/name" string into a Repo.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" {
		return Repo{}, fmt.Errorf("invalid repository %q: want owner/name", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Issue is an open issue on a target repository.
type Issue struct {
	Number int
	Title  string
	Body   string
	Labels []string
}

// Client is the issue and pull-request surface the agent depends on.
// Implementations must be safe for sequential use from the cycle loop.
type Client interface {
	// ListOpenIssues returns all open issues on the repository, excluding
	// pull requests.
	ListOpenIssues(ctx context.Context, repo Repo) ([]Issue, error)

	// CreateBranch creates a branch pointing at fromRef's head. Creating a
	// branch that already exists is not an error.
	CreateBranch(ctx context.Context, repo Repo, name, fromRef string) error

	// CommitFile creates or updates a single file on a branch.
	CommitFile(ctx context.Context, repo Repo, branch, path string, content []byte, message string) error

	// OpenPullRequest opens a pull request and returns its URL.
	OpenPullRequest(ctx context.Context, repo Repo, title, body, head, base string) (string, error)

	// CreateIssue files an issue and returns its number.
	CreateIssue(ctx context.Context, repo Repo, title, body string) (int, error)
}

// IssueReporter binds a Client to a fixed repository, matching the
// single-repo reporter shape the model watcher consumes.
type IssueReporter struct {
	client Client
	repo   Repo
}

// NewIssueReporter returns a reporter that files issues on repo.
func NewIssueReporter(client Client, repo Repo) *IssueReporter {
	return &IssueReporter{client: client, repo: repo}
}

// CreateIssue files an issue on the bound repository.
func (r *IssueReporter) CreateIssue(ctx context.Context, title, body string) error {
	_, err := r.client.CreateIssue(ctx, r.repo, title, body)
	return err
}
