// Package ingest drives the transport client across pages and materializes
// the time-bounded activity table consumed by scoring.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codegauge/impactboard/pkg/cache"
	"github.com/codegauge/impactboard/pkg/github"
	"github.com/codegauge/impactboard/pkg/types"
)

// checkpointName is the snapshot key for partial-progress checkpoints.
const checkpointName = "activity-checkpoint"

// checkpoint is the snapshot written at a fixed page interval. Cursor points
// at the next page to request, so a restarted run resumes where the crashed
// one stopped instead of re-walking from the first page.
type checkpoint struct {
	Owner   string                 `json:"owner"`
	Repo    string                 `json:"repo"`
	Cursor  string                 `json:"cursor"`
	Pages   int                    `json:"pages"`
	Records []types.ActivityRecord `json:"records"`
}

// ErrNoActivity reports that the window filter left nothing to score.
// An empty table is fatal: the run must not silently produce an empty
// leaderboard.
var ErrNoActivity = errors.New("no merged pull requests found inside the trailing window")

// Pager fetches one page of merged pull request activity.
type Pager interface {
	MergedPullRequestPage(ctx context.Context, owner, repo, cursor string, opts github.PageOptions) (*types.ActivityPage, error)
}

// Config holds the knobs for one ingestion run.
type Config struct {
	Owner           string
	Repo            string
	Window          time.Duration // trailing window ending now
	Page            github.PageOptions
	PacingDelay     time.Duration // blocking sleep between pages
	MaxPages        int           // hard bound on pages walked
	CheckpointEvery int           // pages between snapshots; 0 disables
}

// Pipeline produces the activity table. It owns record construction
// exclusively: the table it returns is frozen and handed off to scoring.
type Pipeline struct {
	pager     Pager
	snapshots *cache.Snapshots
	now       func() time.Time
	cfg       Config
}

// New creates an ingestion pipeline. snapshots may be a disabled store.
func New(pager Pager, snapshots *cache.Snapshots, cfg Config) *Pipeline {
	return &Pipeline{
		pager:     pager,
		snapshots: snapshots,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Run walks pages until the window is exhausted and returns the frozen
// activity table.
//
// Pages arrive ordered by last-update time, not merge time, so a page may
// mix in-window and out-of-window records. Every record is therefore
// tested against the merge window independently; out-of-window records are
// dropped, never treated as an immediate stop signal. The walk ends when
// the upstream has no further pages, when an entire page is stale on the
// sort key (zero records kept and every record last updated before the
// window start, which a merge can no longer precede), or when the hard
// page bound is hit, in which case the result is flagged as possibly
// incomplete.
func (p *Pipeline) Run(ctx context.Context) ([]types.ActivityRecord, error) {
	windowStart := p.now().Add(-p.cfg.Window)
	slog.InfoContext(ctx, "Starting activity ingestion",
		"owner", p.cfg.Owner, "repo", p.cfg.Repo, "window_start", windowStart.Format(time.RFC3339))

	var records []types.ActivityRecord
	cursor := ""
	pages := 0

	// A checkpoint left behind by a crashed run resumes the walk at the
	// saved cursor. Checkpoints for a different repository are ignored.
	var cp checkpoint
	if p.snapshots.Load(checkpointName, &cp) {
		if cp.Owner == p.cfg.Owner && cp.Repo == p.cfg.Repo && cp.Cursor != "" {
			records = cp.Records
			cursor = cp.Cursor
			pages = cp.Pages
			slog.InfoContext(ctx, "Resuming from checkpoint", "pages", pages, "records", len(records))
		} else {
			p.snapshots.Remove(checkpointName)
		}
	}

	for {
		page, err := p.pager.MergedPullRequestPage(ctx, p.cfg.Owner, p.cfg.Repo, cursor, p.cfg.Page)
		if err != nil {
			return nil, fmt.Errorf("ingestion aborted on page %d: %w", pages+1, err)
		}
		pages++

		kept := 0
		pageStale := true
		for _, node := range page.Nodes {
			// Merged state guarantees a merge timestamp upstream; a zero
			// value here means a malformed node, not a window miss.
			if node.MergedAt.IsZero() {
				continue
			}
			if !node.UpdatedAt.IsZero() && !node.UpdatedAt.Before(windowStart) {
				pageStale = false
			}
			if node.MergedAt.Before(windowStart) {
				continue
			}
			records = append(records, normalize(node))
			kept++
		}

		slog.InfoContext(ctx, "Page ingested", "page", pages, "kept", kept, "total", len(records))

		if p.cfg.CheckpointEvery > 0 && pages%p.cfg.CheckpointEvery == 0 && page.HasNextPage {
			p.snapshots.Save(checkpointName, checkpoint{
				Owner:   p.cfg.Owner,
				Repo:    p.cfg.Repo,
				Cursor:  page.EndCursor,
				Pages:   pages,
				Records: records,
			})
		}

		if !page.HasNextPage {
			slog.InfoContext(ctx, "Stopping: no further pages upstream", "pages", pages)
			break
		}
		if kept == 0 && pageStale {
			// Every record on the page was last updated before the window
			// start; since a merge never postdates its last update, the
			// walk is past the window on the sort key.
			slog.InfoContext(ctx, "Stopping: page entirely stale on sort key", "pages", pages)
			break
		}
		if p.cfg.MaxPages > 0 && pages >= p.cfg.MaxPages {
			slog.WarnContext(ctx, "Stopping: hard page bound reached, results may be incomplete",
				"pages", pages, "max_pages", p.cfg.MaxPages)
			break
		}

		cursor = page.EndCursor
		if p.cfg.PacingDelay > 0 {
			time.Sleep(p.cfg.PacingDelay)
		}
	}

	// Defensive final pass: guard against records that slipped past the
	// per-page filter through clock or pagination anomalies.
	records = filterWindow(records, windowStart)

	if len(records) == 0 {
		return nil, fmt.Errorf("%w (repo %s/%s, %d pages walked): check token scope and repository access",
			ErrNoActivity, p.cfg.Owner, p.cfg.Repo, pages)
	}

	p.snapshots.Remove(checkpointName)
	slog.InfoContext(ctx, "Ingestion complete", "records", len(records), "pages", pages)
	return records, nil
}

// normalize converts a raw pull node into a frozen activity record,
// defaulting missing fields instead of failing: partial metadata must not
// abort an otherwise successful page.
func normalize(node types.PullNode) types.ActivityRecord {
	author := node.Author
	if author == "" {
		author = "unknown"
	}

	files := node.Files
	if files == nil {
		files = []string{}
	}
	labels := node.Labels
	if labels == nil {
		labels = []string{}
	}

	reviews := make([]types.ReviewRecord, 0, len(node.Reviews))
	for _, rv := range node.Reviews {
		if rv.SubmittedAt.IsZero() {
			continue
		}
		reviewer := rv.Author
		if reviewer == "" {
			reviewer = "unknown"
		}
		reviews = append(reviews, types.ReviewRecord{
			Reviewer:    reviewer,
			State:       rv.State,
			SubmittedAt: rv.SubmittedAt,
		})
	}

	return types.ActivityRecord{
		Number:       node.Number,
		Title:        node.Title,
		URL:          node.URL,
		Author:       author,
		CreatedAt:    node.CreatedAt,
		MergedAt:     node.MergedAt,
		UpdatedAt:    node.UpdatedAt,
		ChangedFiles: node.ChangedFiles,
		Additions:    node.Additions,
		Deletions:    node.Deletions,
		CommentCount: node.CommentCount,
		Files:        files,
		Labels:       labels,
		Reviews:      reviews,
	}
}

// filterWindow keeps only records merged at or after windowStart.
func filterWindow(records []types.ActivityRecord, windowStart time.Time) []types.ActivityRecord {
	filtered := records[:0]
	for _, r := range records {
		if !r.MergedAt.Before(windowStart) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
