package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Retry backoff parameters. The attempt cap itself is configuration
// (Config.MaxRetries); exhausting it is fatal for the whole run.
const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 2 * time.Minute
)

// retryWithBackoff executes fn with exponential backoff and jitter.
// Transient and permanent failures are deliberately not distinguished:
// auth errors burn a few attempts but still surface with the real cause.
func retryWithBackoff(ctx context.Context, operation string, attempts uint, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying after failure", "operation", operation, "attempt", n+1, "max_attempts", attempts, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}
