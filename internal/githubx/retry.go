package githubx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

const (
	maxRetries     = 3
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// retryOperation retries a GitHub API call with exponential backoff. Rate
// limit responses wait for the advertised reset time instead of the normal
// backoff.
func retryOperation(ctx context.Context, logger *zap.Logger, operation func() (*github.Response, error)) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(resp) {
			return err
		}
		if attempt == maxRetries {
			break
		}

		wait := backoff
		if isRateLimited(resp) {
			wait = rateLimitBackoff(resp)
		}
		logger.Warn("retrying GitHub API call",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(wait):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("GitHub API call failed after %d retries: %w", maxRetries, lastErr)
}

func isRetryable(resp *github.Response) bool {
	if resp == nil || resp.Response == nil {
		// Network errors and timeouts without a response are transient.
		return true
	}
	code := resp.StatusCode
	switch {
	case code == http.StatusTooManyRequests:
		return true
	case code == http.StatusForbidden:
		// Secondary rate limits come back as 403 with rate info attached.
		return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
	case code >= 500:
		return true
	default:
		return false
	}
}

func isRateLimited(resp *github.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Rate.Limit > 0
}

func rateLimitBackoff(resp *github.Response) time.Duration {
	wait := time.Until(resp.Rate.Reset.Time) + time.Second
	if wait < time.Second {
		wait = time.Second
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}
	return wait
}
