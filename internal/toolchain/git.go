package toolchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
)

// ErrNothingToCommit is returned by CommitAll when the working tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Git performs local repository operations on a checkout.
type Git struct {
	authorName  string
	authorEmail string
	logger      *zap.Logger
}

// NewGit returns a Git helper that signs commits with the given identity.
func NewGit(authorName, authorEmail string, logger *zap.Logger) *Git {
	return &Git{authorName: authorName, authorEmail: authorEmail, logger: logger}
}

// EnsureBranch checks out the named branch, creating it from the current
// head when it does not exist yet.
func (g *Git) EnsureBranch(dir, name string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	branch := plumbing.NewBranchReferenceName(name)
	err = wt.Checkout(&git.CheckoutOptions{Branch: branch})
	if err == nil {
		return nil
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branch, Create: true}); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	g.logger.Info("branch created", zap.String("dir", dir), zap.String("branch", name))
	return nil
}

// CommitAll stages every change in the checkout and commits it. Returns
// ErrNothingToCommit when the tree is clean.
func (g *Git) CommitAll(dir, message string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingToCommit
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.authorName,
			Email: g.authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	g.logger.Info("changes committed",
		zap.String("dir", dir),
		zap.String("hash", hash.String()),
		zap.String("message", message))
	return hash.String(), nil
}

// Push pushes the checkout's current state to the named remote. Pushing an
// up-to-date branch is not an error.
func (g *Git) Push(ctx context.Context, dir, remote string, token config.Secret) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", dir, err)
	}

	opts := &git.PushOptions{RemoteName: remote}
	if token.IsSet() {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token.Value()}
	}

	err = repo.PushContext(ctx, opts)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", remote, err)
	}

	g.logger.Info("pushed", zap.String("dir", dir), zap.String("remote", remote))
	return nil
}
