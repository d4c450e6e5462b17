package scoring

import (
	"strings"
	"testing"

	"github.com/codegauge/impactboard/pkg/types"
)

func TestFormatBullets_PriorityOrder(t *testing.T) {
	a := &accumulator{
		delivery:    20,
		reviews:     5,
		leadership:  13,
		authored:    []types.EvidenceLink{{Title: "one"}, {Title: "two"}},
		reviewCount: 2,
		earlyCount:  1,
	}

	bullets := formatBullets(a)
	if len(bullets) != 3 {
		t.Fatalf("expected 3 bullets, got %d", len(bullets))
	}
	if !strings.Contains(bullets[0], "Shipped 2 merged pull requests") {
		t.Errorf("bullet 0 = %q, want delivery summary first", bullets[0])
	}
	if !strings.Contains(bullets[1], "2 reviews (1 early)") {
		t.Errorf("bullet 1 = %q, want review summary second", bullets[1])
	}
	if !strings.Contains(bullets[2], "leverage work") {
		t.Errorf("bullet 2 = %q, want leadership statement third", bullets[2])
	}
}

func TestFormatBullets_Fallback(t *testing.T) {
	bullets := formatBullets(&accumulator{})
	if len(bullets) != 1 {
		t.Fatalf("expected single fallback bullet, got %d", len(bullets))
	}
	if !strings.Contains(bullets[0], "Contributed via") {
		t.Errorf("fallback bullet = %q", bullets[0])
	}
}

func TestFormatBullets_ReviewsOnly(t *testing.T) {
	bullets := formatBullets(&accumulator{reviews: 3, reviewCount: 1})
	if len(bullets) != 1 {
		t.Fatalf("expected 1 bullet, got %d", len(bullets))
	}
	if !strings.Contains(bullets[0], "1 reviews (0 early)") {
		t.Errorf("bullet = %q", bullets[0])
	}
}

func TestTopEvidence_BoundedAndDeterministic(t *testing.T) {
	links := []types.EvidenceLink{
		{Title: "a", URL: "u1", Points: 10},
		{Title: "b", URL: "u2", Points: 30},
		{Title: "c", URL: "u3", Points: 20},
		{Title: "d", URL: "u4", Points: 30},
		{Title: "e", URL: "u5", Points: 5},
	}

	top := topEvidence(links, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 links, got %d", len(top))
	}
	// 30-point tie breaks on URL, then the 20-point link.
	if top[0].URL != "u2" || top[1].URL != "u4" || top[2].URL != "u3" {
		t.Errorf("top order = [%s, %s, %s], want [u2, u4, u3]", top[0].URL, top[1].URL, top[2].URL)
	}
	// Input must not be reordered.
	if links[0].Title != "a" {
		t.Error("topEvidence mutated its input")
	}
}

func TestSummarizeReasons(t *testing.T) {
	reasons := []types.ScoreReason{
		{Factor: "Merged PR", Points: 10},
		{Factor: "Bugfix/Regression", Points: 3},
		{Factor: "Core area multiplier (x1.30)", Points: 3.9},
		{Factor: "ignored past cap", Points: 1},
	}

	got := summarizeReasons(reasons)
	want := "Merged PR (+10), Bugfix/Regression (+3), Core area multiplier (x1.30)"
	if got != want {
		t.Errorf("summarizeReasons = %q, want %q", got, want)
	}
}
