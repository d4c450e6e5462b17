// Package store persists the two downstream tabular datasets: the activity
// table produced by ingestion and the scored contributor table. SQLite
// keeps the tool a single self-contained binary with a single file of
// state, the way the presentation layer expects to consume it.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/codegauge/impactboard/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// bulletSeparator joins evidence bullets into a single text column.
const bulletSeparator = "\n"

// Store wraps the SQLite database holding activity and score tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies all
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// ReplaceActivity atomically replaces the activity table with records.
// Ingestion recomputes the whole window each run, so partial updates are
// never needed.
func (s *Store) ReplaceActivity(ctx context.Context, records []types.ActivityRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews`); err != nil {
		return fmt.Errorf("clearing reviews: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pull_requests`); err != nil {
		return fmt.Errorf("clearing pull requests: %w", err)
	}

	prStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pull_requests
			(number, title, url, author, created_at, merged_at, updated_at,
			 changed_files, additions, deletions, comment_count, files, labels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing pull request insert: %w", err)
	}
	defer func() { _ = prStmt.Close() }()

	reviewStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (pr_number, reviewer, state, submitted_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing review insert: %w", err)
	}
	defer func() { _ = reviewStmt.Close() }()

	for _, r := range records {
		files, err := json.Marshal(r.Files)
		if err != nil {
			return fmt.Errorf("encoding files for PR %d: %w", r.Number, err)
		}
		labels, err := json.Marshal(r.Labels)
		if err != nil {
			return fmt.Errorf("encoding labels for PR %d: %w", r.Number, err)
		}

		if _, err := prStmt.ExecContext(ctx,
			r.Number, r.Title, r.URL, r.Author,
			r.CreatedAt.Format(time.RFC3339), r.MergedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339),
			r.ChangedFiles, r.Additions, r.Deletions, r.CommentCount,
			string(files), string(labels),
		); err != nil {
			return fmt.Errorf("inserting PR %d: %w", r.Number, err)
		}

		for _, rv := range r.Reviews {
			if _, err := reviewStmt.ExecContext(ctx,
				r.Number, rv.Reviewer, rv.State, rv.SubmittedAt.Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("inserting review on PR %d: %w", r.Number, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing activity: %w", err)
	}
	return nil
}

// Activity loads the complete activity table, reviews included, ordered by
// merge time descending.
func (s *Store) Activity(ctx context.Context) ([]types.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, title, url, author, created_at, merged_at, updated_at,
		       changed_files, additions, deletions, comment_count, files, labels
		FROM pull_requests
		ORDER BY merged_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying pull requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.ActivityRecord
	index := make(map[int]int)

	for rows.Next() {
		var (
			r                             types.ActivityRecord
			createdAt, mergedAt, updatedAt string
			files, labels                  string
		)
		if err := rows.Scan(&r.Number, &r.Title, &r.URL, &r.Author,
			&createdAt, &mergedAt, &updatedAt,
			&r.ChangedFiles, &r.Additions, &r.Deletions, &r.CommentCount,
			&files, &labels); err != nil {
			return nil, fmt.Errorf("scanning pull request: %w", err)
		}

		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for PR %d: %w", r.Number, err)
		}
		if r.MergedAt, err = time.Parse(time.RFC3339, mergedAt); err != nil {
			return nil, fmt.Errorf("parsing merged_at for PR %d: %w", r.Number, err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at for PR %d: %w", r.Number, err)
		}
		if err := json.Unmarshal([]byte(files), &r.Files); err != nil {
			return nil, fmt.Errorf("decoding files for PR %d: %w", r.Number, err)
		}
		if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
			return nil, fmt.Errorf("decoding labels for PR %d: %w", r.Number, err)
		}

		index[r.Number] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pull requests: %w", err)
	}

	reviewRows, err := s.db.QueryContext(ctx, `
		SELECT pr_number, reviewer, state, submitted_at
		FROM reviews
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer func() { _ = reviewRows.Close() }()

	for reviewRows.Next() {
		var (
			prNumber    int
			rv          types.ReviewRecord
			submittedAt string
		)
		if err := reviewRows.Scan(&prNumber, &rv.Reviewer, &rv.State, &submittedAt); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		if rv.SubmittedAt, err = time.Parse(time.RFC3339, submittedAt); err != nil {
			return nil, fmt.Errorf("parsing submitted_at on PR %d: %w", prNumber, err)
		}
		if i, ok := index[prNumber]; ok {
			records[i].Reviews = append(records[i].Reviews, rv)
		}
	}
	if err := reviewRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviews: %w", err)
	}

	return records, nil
}

// ReplaceScores atomically replaces the contributor score table.
func (s *Store) ReplaceScores(ctx context.Context, scores []types.ContributorScore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM contributor_scores`); err != nil {
		return fmt.Errorf("clearing contributor scores: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contributor_scores
			(contributor, delivery, reviews, leadership, total, bullets, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing score insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, score := range scores {
		evidence, err := json.Marshal(score.Evidence)
		if err != nil {
			return fmt.Errorf("encoding evidence for %s: %w", score.Contributor, err)
		}
		if _, err := stmt.ExecContext(ctx,
			score.Contributor, score.Delivery, score.Reviews, score.Leadership, score.Total,
			strings.Join(score.Bullets, bulletSeparator), string(evidence),
		); err != nil {
			return fmt.Errorf("inserting score for %s: %w", score.Contributor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing scores: %w", err)
	}
	return nil
}

// Scores loads the contributor score table ordered by total descending,
// contributor ascending on ties.
func (s *Store) Scores(ctx context.Context) ([]types.ContributorScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contributor, delivery, reviews, leadership, total, bullets, evidence
		FROM contributor_scores
		ORDER BY total DESC, contributor ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying contributor scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []types.ContributorScore
	for rows.Next() {
		var (
			score    types.ContributorScore
			bullets  string
			evidence string
		)
		if err := rows.Scan(&score.Contributor, &score.Delivery, &score.Reviews,
			&score.Leadership, &score.Total, &bullets, &evidence); err != nil {
			return nil, fmt.Errorf("scanning contributor score: %w", err)
		}
		if bullets != "" {
			score.Bullets = strings.Split(bullets, bulletSeparator)
		}
		if err := json.Unmarshal([]byte(evidence), &score.Evidence); err != nil {
			return nil, fmt.Errorf("decoding evidence for %s: %w", score.Contributor, err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contributor scores: %w", err)
	}

	return scores, nil
}
