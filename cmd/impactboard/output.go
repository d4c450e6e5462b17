package main

import (
	"fmt"
	"strings"

	"github.com/codegauge/impactboard/pkg/scoring"
	"github.com/codegauge/impactboard/pkg/types"
)

const headerRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// formatLeaderboard renders the top contributors with their score
// breakdown and evidence bullets.
func formatLeaderboard(scores []types.ContributorScore, top int, includeBots bool) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(headerRule + "\n")
	b.WriteString("  Contributor Impact Leaderboard\n")
	b.WriteString(headerRule + "\n")

	rank := 0
	for _, score := range scores {
		if !includeBots && scoring.IsBot(score.Contributor) {
			continue
		}
		rank++
		if rank > top {
			break
		}

		b.WriteString(fmt.Sprintf("\n  %d. @%s — %.1f points\n", rank, score.Contributor, score.Total))
		b.WriteString(fmt.Sprintf("     delivery %.1f | reviews %.1f | leadership %.1f\n",
			score.Delivery, score.Reviews, score.Leadership))

		for _, bullet := range score.Bullets {
			b.WriteString(fmt.Sprintf("     - %s\n", bullet))
		}
		for _, link := range score.Evidence {
			b.WriteString(fmt.Sprintf("       %s (%.1f) %s\n", link.Title, link.Points, link.URL))
		}
	}

	if rank == 0 {
		b.WriteString("\n  No contributors to show.\n")
	}

	b.WriteString("\n")
	return b.String()
}
