package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/codegauge/impactboard/pkg/cache"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication constants.
const (
	maxTokenLength = 255 // Maximum expected length for GitHub tokens
	minTokenLength = 40  // Minimum expected length for GitHub tokens
	maxAppID       = 999999999
	jwtLifetime    = 10 * time.Minute // GitHub App JWTs expire after 10 minutes max
)

// newPersonalTokenClient creates a client authenticated with a personal
// access token. With no token configured it falls back to the gh CLI.
func newPersonalTokenClient(ctx context.Context, cfg Config) (*Client, error) {
	token := cfg.Token
	if token == "" {
		cmd := exec.CommandContext(ctx, "gh", "auth", "token")
		output, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("no GITHUB_TOKEN configured and gh CLI fallback failed: %w", err)
		}
		token = strings.TrimSpace(string(output))
	}

	if err := validateToken(token); err != nil {
		return nil, err
	}

	slog.Info("Using personal access token authentication")

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		pageCache:   cache.New(cfg.PageCacheTTL),
		token:       token,
		maxAttempts: cfg.MaxRetries,
	}, nil
}

// newAppAuthClient creates a client authenticated as a GitHub App. The JWT
// is exchanged for an installation token up front; runs are short enough
// that a single exchange covers the whole walk.
func newAppAuthClient(ctx context.Context, cfg Config) (*Client, error) {
	appID, privateKey, err := resolveAppCredentials(cfg.AppID, cfg.AppKeyPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		pageCache:   cache.New(cfg.PageCacheTTL),
		maxAttempts: cfg.MaxRetries,
	}

	jwtToken, err := generateJWT(appID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate app JWT: %w", err)
	}

	installToken, err := c.installationToken(ctx, jwtToken)
	if err != nil {
		return nil, err
	}
	c.token = installToken

	slog.Info("Using GitHub App authentication", "app_id", appID)
	return c, nil
}

// resolveAppCredentials resolves the app ID and private key from flags or
// environment variables.
func resolveAppCredentials(appID, keyPath string) (string, []byte, error) {
	if appID == "" {
		appID = os.Getenv("GITHUB_APP_ID")
	}
	if appID == "" {
		return "", nil, errors.New("GitHub App ID is required: set GITHUB_APP_ID")
	}
	if err := validateAppID(appID); err != nil {
		return "", nil, err
	}

	if keyContent := os.Getenv("GITHUB_APP_KEY"); keyContent != "" {
		return appID, []byte(keyContent), nil
	}
	if keyPath == "" {
		keyPath = os.Getenv("GITHUB_APP_KEY_PATH")
	}
	if keyPath == "" {
		return "", nil, errors.New("GitHub App private key is required: set GITHUB_APP_KEY (content) or GITHUB_APP_KEY_PATH (file)")
	}

	privateKey, err := os.ReadFile(keyPath) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return "", nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return appID, privateKey, nil
}

// generateJWT generates a JWT for GitHub App authentication.
func generateJWT(appID string, privateKey []byte) (string, error) {
	block, _ := pem.Decode(privateKey)
	if block == nil {
		return "", errors.New("failed to parse PEM block containing the private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS8 format if PKCS1 fails
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		key, ok = parsedKey.(*rsa.PrivateKey)
		if !ok {
			return "", errors.New("private key is not RSA")
		}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(jwtLifetime).Unix(),
		"iss": appID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(key)
}

// installationToken exchanges the app JWT for an installation access token.
// The first installation is used: the tool analyzes a single repository and
// its app is expected to be installed in exactly one place.
func (c *Client) installationToken(ctx context.Context, jwtToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/app/installations", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create installations request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to list app installations: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listing app installations failed with status %d", resp.StatusCode)
	}

	var installations []struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&installations); err != nil {
		return "", fmt.Errorf("failed to decode installations: %w", err)
	}
	if len(installations) == 0 {
		return "", errors.New("GitHub App has no installations")
	}

	tokenURL := fmt.Sprintf("https://api.github.com/app/installations/%d/access_tokens", installations[0].ID)
	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	tokenReq.Header.Set("Authorization", "Bearer "+jwtToken)
	tokenReq.Header.Set("Accept", "application/vnd.github+json")

	tokenResp, err := c.httpClient.Do(tokenReq)
	if err != nil {
		return "", fmt.Errorf("failed to create installation token: %w", err)
	}
	defer drainAndCloseBody(tokenResp.Body)

	if tokenResp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("creating installation token failed with status %d", tokenResp.StatusCode)
	}

	var tokenData struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenData); err != nil {
		return "", fmt.Errorf("failed to decode installation token: %w", err)
	}
	return tokenData.Token, nil
}

// validateToken performs basic shape checks on a personal access token.
func validateToken(token string) error {
	if token == "" {
		return errors.New("GitHub token is empty")
	}
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return fmt.Errorf("GitHub token has unexpected length %d", len(token))
	}
	for _, r := range token {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return errors.New("GitHub token contains unexpected characters")
		}
	}
	return nil
}

// validateAppID validates the GitHub App ID.
func validateAppID(appID string) error {
	appIDNum, err := strconv.Atoi(appID)
	if err != nil {
		return fmt.Errorf("GITHUB_APP_ID must be numeric: %w", err)
	}
	if appIDNum <= 0 || appIDNum > maxAppID {
		return errors.New("GITHUB_APP_ID out of valid range")
	}
	return nil
}
