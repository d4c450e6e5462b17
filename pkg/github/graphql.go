package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	maxQuerySize    = 100000
	graphQLEndpoint = "https://api.github.com/graphql"
)

// MakeGraphQLRequest makes a GraphQL request to the GitHub API with retry
// and exponential backoff. Rate limiting, 5xx-class statuses, and
// error-bearing 200 responses all count as failures and are retried;
// exhausting the attempt budget is fatal for the run.
func (c *Client) MakeGraphQLRequest(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	queryType := extractGraphQLQueryType(query)
	querySize := len(query)

	if querySize > maxQuerySize {
		return nil, fmt.Errorf("GraphQL query too large: %d chars (max %d)", querySize, maxQuerySize)
	}

	slog.DebugContext(ctx, "Executing GraphQL query", "type", queryType, "size", querySize, "variables", len(variables))

	payload := map[string]any{
		"query":     query,
		"variables": variables,
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	start := time.Now()

	var result map[string]any
	err = retryWithBackoff(ctx, fmt.Sprintf("GraphQL %s query", queryType), c.maxAttempts, func() error {
		// Decode into a fresh map on every attempt: unmarshaling into a
		// non-nil map merges keys, so a stale "errors" key from a failed
		// attempt would otherwise shadow a later clean response.
		var payload map[string]any
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphQLEndpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("failed to create GraphQL request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("graphql request failed: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.WarnContext(ctx, "Failed to close response body", "error", err)
			}
		}()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			slog.WarnContext(ctx, "GraphQL query failed", "type", queryType, "status", resp.StatusCode)
			return fmt.Errorf("graphql request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
		}

		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("failed to decode GraphQL response: %w", err)
		}

		// GitHub reports rate limiting and partial failures here with a
		// 200 status, so an error-bearing payload is retried too.
		if errs, ok := payload["errors"]; ok {
			slog.WarnContext(ctx, "GraphQL query returned errors", "type", queryType, "errors", errs)
			return fmt.Errorf("graphql errors: %v", errs)
		}

		result = payload
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "GraphQL query completed", "type", queryType, "duration", time.Since(start))
	return result, nil
}

// extractGraphQLQueryType extracts a short label from a query for logging.
func extractGraphQLQueryType(query string) string {
	trimmed := strings.TrimSpace(query)
	if idx := strings.Index(trimmed, "{"); idx > 0 {
		header := strings.TrimSpace(trimmed[:idx])
		if header != "" {
			return strings.Fields(header)[0]
		}
	}
	return "anonymous"
}

// truncate shortens s for log and error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
