package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codegauge/impactboard/pkg/cache"
	"github.com/codegauge/impactboard/pkg/github"
	"github.com/codegauge/impactboard/pkg/types"
)

var errPagerBroken = errors.New("pager broken")

// scriptedPager replays a fixed page sequence and records the cursors it
// was asked for. A nil page in the script yields an error.
type scriptedPager struct {
	pages   []*types.ActivityPage
	cursors []string
	calls   int
}

func (p *scriptedPager) MergedPullRequestPage(_ context.Context, _, _, cursor string, _ github.PageOptions) (*types.ActivityPage, error) {
	p.cursors = append(p.cursors, cursor)
	if p.calls >= len(p.pages) {
		return nil, errors.New("pager exhausted: requested more pages than scripted")
	}
	page := p.pages[p.calls]
	p.calls++
	if page == nil {
		return nil, errPagerBroken
	}
	return page, nil
}

var testNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

// node builds a pull node merged and updated the given number of days ago.
func node(number int, author string, mergedDaysAgo, updatedDaysAgo int) types.PullNode {
	return types.PullNode{
		Number:    number,
		Title:     "change",
		URL:       "https://example.com/pr",
		Author:    author,
		CreatedAt: testNow.AddDate(0, 0, -mergedDaysAgo-1),
		MergedAt:  testNow.AddDate(0, 0, -mergedDaysAgo),
		UpdatedAt: testNow.AddDate(0, 0, -updatedDaysAgo),
	}
}

func newTestPipeline(t *testing.T, pager Pager, cfg Config) *Pipeline {
	t.Helper()
	snapshots, err := cache.NewSnapshots("")
	if err != nil {
		t.Fatalf("NewSnapshots: %v", err)
	}
	if cfg.Window == 0 {
		cfg.Window = 90 * 24 * time.Hour
	}
	p := New(pager, snapshots, cfg)
	p.now = func() time.Time { return testNow }
	return p
}

func TestRun_FiltersWindowAcrossMixedPages(t *testing.T) {
	// Page 1 mixes in-window and out-of-window merges, with an in-window
	// record appearing after an out-of-window one: the walk must drop the
	// old ones, keep the fresh ones, and keep paging.
	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes: []types.PullNode{
				node(1, "alice", 10, 1),
				node(2, "bob", 200, 2), // merged long ago, recently updated
				node(3, "carol", 30, 3),
			},
			HasNextPage: true,
			EndCursor:   "c1",
		},
		{
			Nodes:       []types.PullNode{node(4, "dave", 89, 4)},
			HasNextPage: false,
		},
	}}

	p := newTestPipeline(t, pager, Config{Owner: "o", Repo: "r"})
	records, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	windowStart := testNow.Add(-90 * 24 * time.Hour)
	for _, r := range records {
		if r.MergedAt.Before(windowStart) {
			t.Errorf("record %d merged at %v, before window start %v", r.Number, r.MergedAt, windowStart)
		}
	}
	if pager.calls != 2 {
		t.Errorf("pager calls = %d, want 2", pager.calls)
	}
}

func TestRun_ContinuesPastFreshEmptyPage(t *testing.T) {
	// A page with zero in-window merges but fresh update timestamps must
	// not stop the walk: later pages can still hold in-window merges.
	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(1, "alice", 120, 1)},
			HasNextPage: true,
			EndCursor:   "c1",
		},
		{
			Nodes:       []types.PullNode{node(2, "bob", 5, 2)},
			HasNextPage: false,
		},
	}}

	p := newTestPipeline(t, pager, Config{Owner: "o", Repo: "r"})
	records, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 1 || records[0].Number != 2 {
		t.Fatalf("expected only record 2, got %+v", records)
	}
	if pager.calls != 2 {
		t.Errorf("pager calls = %d, want 2", pager.calls)
	}
}

func TestRun_StopsOnStalePage(t *testing.T) {
	// Page 2 is entirely stale on the sort key, so page 3 must never be
	// requested even though the upstream reports more pages.
	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(1, "alice", 10, 1)},
			HasNextPage: true,
			EndCursor:   "c1",
		},
		{
			Nodes:       []types.PullNode{node(2, "bob", 150, 120)},
			HasNextPage: true,
			EndCursor:   "c2",
		},
		{
			Nodes:       []types.PullNode{node(3, "never-reached", 5, 5)},
			HasNextPage: false,
		},
	}}

	p := newTestPipeline(t, pager, Config{Owner: "o", Repo: "r"})
	records, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if pager.calls != 2 {
		t.Errorf("pager calls = %d, want 2 (walk must stop on the stale page)", pager.calls)
	}
}

func TestRun_StopsAtPageBound(t *testing.T) {
	pages := make([]*types.ActivityPage, 10)
	for i := range pages {
		pages[i] = &types.ActivityPage{
			Nodes:       []types.PullNode{node(i+1, "alice", 1, 1)},
			HasNextPage: true,
			EndCursor:   "c",
		}
	}
	pager := &scriptedPager{pages: pages}

	p := newTestPipeline(t, pager, Config{Owner: "o", Repo: "r", MaxPages: 3})
	records, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pager.calls != 3 {
		t.Errorf("pager calls = %d, want 3", pager.calls)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestRun_EmptyWindowIsFatal(t *testing.T) {
	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(1, "alice", 200, 150)},
			HasNextPage: false,
		},
	}}

	p := newTestPipeline(t, pager, Config{Owner: "o", Repo: "r"})
	_, err := p.Run(context.Background())
	if !errors.Is(err, ErrNoActivity) {
		t.Fatalf("expected ErrNoActivity, got %v", err)
	}
}

func TestRun_TransportErrorAborts(t *testing.T) {
	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(1, "alice", 1, 1)},
			HasNextPage: true,
			EndCursor:   "c1",
		},
		nil,
	}}

	p := newTestPipeline(t, pager, Config{Owner: "o", Repo: "r"})
	_, err := p.Run(context.Background())
	if !errors.Is(err, errPagerBroken) {
		t.Fatalf("expected wrapped pager error, got %v", err)
	}
}

func TestRun_CheckpointSurvivesCrash(t *testing.T) {
	dir := t.TempDir()
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatal(err)
	}
	snapshots, err := cache.NewSnapshots(abs)
	if err != nil {
		t.Fatalf("NewSnapshots: %v", err)
	}

	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(1, "alice", 1, 1)},
			HasNextPage: true,
			EndCursor:   "c1",
		},
		nil, // crash on page 2
	}}

	p := New(pager, snapshots, Config{
		Owner:           "o",
		Repo:            "r",
		Window:          90 * 24 * time.Hour,
		CheckpointEvery: 1,
	})
	p.now = func() time.Time { return testNow }

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected a transport error")
	}

	checkpointPath := filepath.Join(abs, checkpointName+".json")
	if _, err := os.Stat(checkpointPath); err != nil {
		t.Errorf("checkpoint file missing after crash: %v", err)
	}
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	abs, err := filepath.Abs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snapshots, err := cache.NewSnapshots(abs)
	if err != nil {
		t.Fatalf("NewSnapshots: %v", err)
	}

	// A crashed run left one walked page behind; the restart must pick up
	// at the saved cursor instead of page one.
	snapshots.Save(checkpointName, checkpoint{
		Owner:   "o",
		Repo:    "r",
		Cursor:  "c1",
		Pages:   1,
		Records: []types.ActivityRecord{normalize(node(1, "alice", 10, 1))},
	})

	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(2, "bob", 5, 2)},
			HasNextPage: false,
		},
	}}

	p := New(pager, snapshots, Config{Owner: "o", Repo: "r", Window: 90 * 24 * time.Hour})
	p.now = func() time.Time { return testNow }

	records, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(pager.cursors) != 1 || pager.cursors[0] != "c1" {
		t.Errorf("cursors requested = %v, want [c1]", pager.cursors)
	}
	if len(records) != 2 || records[0].Number != 1 || records[1].Number != 2 {
		t.Fatalf("expected checkpointed record 1 plus fresh record 2, got %+v", records)
	}

	// Success must clear the checkpoint.
	var cp checkpoint
	if snapshots.Load(checkpointName, &cp) {
		t.Error("checkpoint should be removed after a successful run")
	}
}

func TestRun_IgnoresCheckpointForOtherRepo(t *testing.T) {
	abs, err := filepath.Abs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snapshots, err := cache.NewSnapshots(abs)
	if err != nil {
		t.Fatalf("NewSnapshots: %v", err)
	}

	snapshots.Save(checkpointName, checkpoint{
		Owner:   "other",
		Repo:    "repo",
		Cursor:  "c9",
		Pages:   3,
		Records: []types.ActivityRecord{normalize(node(99, "eve", 10, 1))},
	})

	pager := &scriptedPager{pages: []*types.ActivityPage{
		{
			Nodes:       []types.PullNode{node(1, "alice", 5, 1)},
			HasNextPage: false,
		},
	}}

	p := New(pager, snapshots, Config{Owner: "o", Repo: "r", Window: 90 * 24 * time.Hour})
	p.now = func() time.Time { return testNow }

	records, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if pager.cursors[0] != "" {
		t.Errorf("first cursor = %q, want empty (fresh walk)", pager.cursors[0])
	}
	if len(records) != 1 || records[0].Number != 1 {
		t.Fatalf("expected only the fresh record, got %+v", records)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	raw := types.PullNode{
		Number:   7,
		MergedAt: testNow,
		Reviews: []types.ReviewNode{
			{Author: "eve", State: "APPROVED", SubmittedAt: testNow},
			{Author: "mallory", State: "COMMENTED"}, // no timestamp: dropped
			{State: "APPROVED", SubmittedAt: testNow},
		},
	}

	record := normalize(raw)
	if record.Author != "unknown" {
		t.Errorf("author = %q, want unknown", record.Author)
	}
	if record.Files == nil || record.Labels == nil {
		t.Error("files and labels must default to empty, not nil")
	}
	if len(record.Reviews) != 2 {
		t.Fatalf("expected 2 reviews after dropping the unstamped one, got %d", len(record.Reviews))
	}
	if record.Reviews[1].Reviewer != "unknown" {
		t.Errorf("reviewer = %q, want unknown", record.Reviews[1].Reviewer)
	}
}
