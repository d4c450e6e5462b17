package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codegauge/impactboard/internal/config"
	"github.com/codegauge/impactboard/internal/logging"
	"github.com/codegauge/impactboard/internal/store"
	"github.com/codegauge/impactboard/pkg/cache"
	"github.com/codegauge/impactboard/pkg/github"
	"github.com/codegauge/impactboard/pkg/ingest"
	"github.com/codegauge/impactboard/pkg/scoring"
)

// fetchActivity runs the ingestion pipeline and replaces the stored
// activity table with the result.
func fetchActivity(ctx context.Context, owner, repo string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Env)

	client, err := github.New(ctx, github.Config{
		Token:        cfg.GitHubToken,
		UseAppAuth:   cfg.UseAppAuth,
		AppID:        cfg.AppID,
		AppKeyPath:   cfg.AppKeyPath,
		HTTPTimeout:  cfg.RequestTimeout,
		PageCacheTTL: cfg.PageCacheTTL,
		MaxRetries:   cfg.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("creating GitHub client: %w", err)
	}

	snapshots, err := cache.NewSnapshots(cfg.SnapshotDir)
	if err != nil {
		return fmt.Errorf("creating snapshot store: %w", err)
	}

	pipeline := ingest.New(client, snapshots, ingest.Config{
		Owner:  owner,
		Repo:   repo,
		Window: cfg.Window(),
		Page: github.PageOptions{
			PageSize:   cfg.PageSize,
			MaxFiles:   cfg.MaxFilesPerPR,
			MaxReviews: cfg.MaxReviewsPerPR,
			MaxLabels:  cfg.MaxLabelsPerPR,
		},
		PacingDelay:     cfg.PacingDelay,
		MaxPages:        cfg.MaxPages,
		CheckpointEvery: cfg.CheckpointEvery,
	})

	records, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()

	if err := st.ReplaceActivity(ctx, records); err != nil {
		return fmt.Errorf("persisting activity table: %w", err)
	}

	slog.InfoContext(ctx, "Activity table persisted", "records", len(records), "database", cfg.DatabasePath)
	return nil
}

// scoreActivity scores the stored activity table, persists the contributor
// table, and prints the leaderboard.
func scoreActivity(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Env)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()

	records, err := st.Activity(ctx)
	if err != nil {
		return fmt.Errorf("loading activity table: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("activity table is empty: run %q first", "impactboard fetch")
	}

	scores := scoring.Score(records)
	if err := st.ReplaceScores(ctx, scores); err != nil {
		return fmt.Errorf("persisting contributor scores: %w", err)
	}

	slog.InfoContext(ctx, "Contributor scores persisted", "contributors", len(scores))
	fmt.Print(formatLeaderboard(scores, topFlag, includeBotsFlag))
	return nil
}
