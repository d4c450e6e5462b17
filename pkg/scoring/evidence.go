package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codegauge/impactboard/pkg/types"
)

// formatBullets reduces a contributor's raw totals into at most three
// human-readable bullets, in fixed priority order: delivery, then reviews,
// then leadership. A contributor with none of the three still gets one
// generic bullet rather than an empty explanation.
func formatBullets(a *accumulator) []string {
	var bullets []string

	if len(a.authored) > 0 {
		bullets = append(bullets, fmt.Sprintf("Shipped %d merged pull requests (top examples linked).", len(a.authored)))
	}
	if a.reviews > 0 {
		bullets = append(bullets, fmt.Sprintf("Unblocked via %d reviews (%d early).", a.reviewCount, a.earlyCount))
	}
	if a.leadership > 0 {
		bullets = append(bullets, "Contributed leverage work (infra/tooling changes).")
	}

	if len(bullets) == 0 {
		return []string{"Contributed via merges and collaboration signals."}
	}
	if len(bullets) > maxEvidenceBullets {
		bullets = bullets[:maxEvidenceBullets]
	}
	return bullets
}

// summarizeReasons joins the leading score reasons into a short "why"
// string for an evidence link.
func summarizeReasons(reasons []types.ScoreReason) string {
	parts := make([]string, 0, maxEvidenceBullets)
	for i, reason := range reasons {
		if i >= maxEvidenceBullets {
			break
		}
		if strings.HasPrefix(reason.Factor, "Core area multiplier") {
			parts = append(parts, reason.Factor)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (+%.0f)", reason.Factor, reason.Points))
	}
	return strings.Join(parts, ", ")
}

// topEvidence returns the highest-scoring authored records, at most n,
// ordered by points descending with URL as the deterministic tie-break.
func topEvidence(links []types.EvidenceLink, n int) []types.EvidenceLink {
	sorted := make([]types.EvidenceLink, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].URL < sorted[j].URL
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
