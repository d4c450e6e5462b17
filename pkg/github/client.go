// Package github provides the GitHub API transport client used by the
// ingestion pipeline.
package github

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codegauge/impactboard/pkg/cache"
)

// Client handles all GitHub API interactions. Pages are fetched one at a
// time, synchronously; the client never fans requests out in parallel so
// that backoff actually reduces load on the API.
type Client struct {
	httpClient  *http.Client
	pageCache   *cache.Cache
	token       string
	maxAttempts uint
}

// Config holds configuration for creating a new GitHub client.
type Config struct {
	Token        string // Personal access token (for non-app auth)
	AppID        string
	AppKeyPath   string
	HTTPTimeout  time.Duration
	PageCacheTTL time.Duration
	MaxRetries   uint
	UseAppAuth   bool
}

// New creates a GitHub API client using a personal access token or GitHub
// App authentication. A missing credential is a fatal condition for the
// caller: there is no anonymous mode.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.UseAppAuth {
		return newAppAuthClient(ctx, cfg)
	}
	return newPersonalTokenClient(ctx, cfg)
}

// drainAndCloseBody drains and closes an HTTP response body to prevent
// connection churn across retries.
func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("Failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}
