// Package config loads runtime configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob. Scoring weights and path-pattern tables
// are deliberately not here: they are fixed constants in pkg/scoring.
type Config struct {
	Env string `env:"APP_ENV" env-default:"local"`

	// Credentials. A missing token is a fatal startup condition unless the
	// gh CLI can supply one, or App auth is enabled.
	GitHubToken string `env:"GITHUB_TOKEN"`
	UseAppAuth  bool   `env:"GITHUB_APP_AUTH" env-default:"false"`
	AppID       string `env:"GITHUB_APP_ID"`
	AppKeyPath  string `env:"GITHUB_APP_KEY_PATH"`

	// Window and paging.
	WindowDays      int           `env:"WINDOW_DAYS" env-default:"90"`
	PageSize        int           `env:"PAGE_SIZE" env-default:"50"`
	MaxFilesPerPR   int           `env:"MAX_FILES_PER_PR" env-default:"30"`
	MaxReviewsPerPR int           `env:"MAX_REVIEWS_PER_PR" env-default:"30"`
	MaxLabelsPerPR  int           `env:"MAX_LABELS_PER_PR" env-default:"25"`
	MaxPages        int           `env:"MAX_PAGES" env-default:"400"`
	PacingDelay     time.Duration `env:"PAGE_PACING" env-default:"120ms"`

	// Transport.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"180s"`
	MaxRetries     uint          `env:"MAX_RETRIES" env-default:"6"`
	PageCacheTTL   time.Duration `env:"PAGE_CACHE_TTL" env-default:"15m"`

	// Durability.
	CheckpointEvery int    `env:"CHECKPOINT_EVERY" env-default:"10"`
	SnapshotDir     string `env:"SNAPSHOT_DIR"`
	DatabasePath    string `env:"DATABASE_PATH" env-default:"impactboard.db"`
}

// Load reads configuration from the environment. A .env file is applied
// first when present; its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read configuration: %w", err)
	}
	return &cfg, nil
}

// Window returns the trailing window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}
