package scoring

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/codegauge/impactboard/pkg/types"
)

// accumulator collects one contributor's running totals during a scoring
// fold. It lives only inside Score and is never shared.
type accumulator struct {
	delivery    float64
	reviews     float64
	leadership  float64
	authored    []types.EvidenceLink
	reviewCount int
	earlyCount  int
}

// Score folds the activity table into one ContributorScore per contributor,
// ranked by descending total. The contributor universe is the union of
// authors and reviewers, so someone who only reviewed still appears with
// zero delivery and leadership. Scoring is a pure function of the table:
// equal inputs produce identical output, with ties on total broken by
// ascending contributor login.
func Score(records []types.ActivityRecord) []types.ContributorScore {
	acc := make(map[string]*accumulator)
	lookup := func(contributor string) *accumulator {
		a, ok := acc[contributor]
		if !ok {
			a = &accumulator{}
			acc[contributor] = a
		}
		return a
	}

	for _, record := range records {
		points, reasons, infra := scoreRecord(record)

		a := lookup(record.Author)
		// Infra/tooling work counts as leadership leverage, everything
		// else as delivery. The split is either/or for a given record.
		if infra {
			a.leadership += points
		} else {
			a.delivery += points
		}
		a.authored = append(a.authored, types.EvidenceLink{
			Title:  record.Title,
			URL:    record.URL,
			Points: points,
			Why:    summarizeReasons(reasons),
		})

		for _, review := range record.Reviews {
			points := reviewPoints
			early := review.SubmittedAt.Sub(record.CreatedAt) < earlyReviewWindow
			if early {
				points += earlyReviewBonus
			}

			r := lookup(review.Reviewer)
			r.reviews += points
			r.reviewCount++
			if early {
				r.earlyCount++
			}
		}
	}

	scores := make([]types.ContributorScore, 0, len(acc))
	for contributor, a := range acc {
		scores = append(scores, types.ContributorScore{
			Contributor: contributor,
			Delivery:    a.delivery,
			Reviews:     a.reviews,
			Leadership:  a.leadership,
			Total:       a.delivery + a.reviews + a.leadership,
			Bullets:     formatBullets(a),
			Evidence:    topEvidence(a.authored, maxEvidenceLinks),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].Contributor < scores[j].Contributor
	})

	return scores
}

// scoreRecord computes the point total for one merged record, the reasons
// behind it, and whether the record counts as infra/tooling work.
func scoreRecord(record types.ActivityRecord) (points float64, reasons []types.ScoreReason, infra bool) {
	points = basePoints
	reasons = append(reasons, types.ScoreReason{Factor: "Merged PR", Points: basePoints})

	switch sizeBucket(record.ChangedFiles, record.Churn()) {
	case "M":
		points += sizeMBonus
		reasons = append(reasons, types.ScoreReason{Factor: "Size M", Points: sizeMBonus})
	case "L":
		points += sizeLBonus
		reasons = append(reasons, types.ScoreReason{Factor: "Size L", Points: sizeLBonus})
	}

	if anyPathMatches(testsDocsPattern, record.Files) {
		points += testsDocsBonus
		reasons = append(reasons, types.ScoreReason{Factor: "Tests/Docs", Points: testsDocsBonus})
	}

	if bugfixPattern.MatchString(record.Title) {
		points += bugfixBonus
		reasons = append(reasons, types.ScoreReason{Factor: "Bugfix/Regression", Points: bugfixBonus})
	}

	infra = anyPathMatches(infraPattern, record.Files)
	if infra {
		points += infraBonus
		reasons = append(reasons, types.ScoreReason{Factor: "Infra/Tooling", Points: infraBonus})
	}

	// The multiplier scales the entire accumulated total, not the base.
	if mult := coreMultiplier(record.Files); mult != defaultMultiplier {
		boost := points*mult - points
		points *= mult
		reasons = append(reasons, types.ScoreReason{
			Factor: fmt.Sprintf("Core area multiplier (x%.2f)", mult),
			Points: boost,
		})
	}

	return points, reasons, infra
}

// sizeBucket assigns a broad size tier from file count and line churn.
// Order matters: S is checked first, then M, else L.
func sizeBucket(changedFiles, churn int) string {
	if changedFiles <= sizeSMaxFiles && churn <= sizeSMaxChurn {
		return "S"
	}
	if changedFiles <= sizeMMaxFiles && churn <= sizeMMaxChurn {
		return "M"
	}
	return "L"
}

// coreMultiplier returns the boost of the first area pattern matching any
// touched path, or the default when nothing matches.
func coreMultiplier(files []string) float64 {
	for _, area := range coreMultipliers {
		if anyPathMatches(area.pattern, files) {
			return area.multiplier
		}
	}
	return defaultMultiplier
}

func anyPathMatches(pattern *regexp.Regexp, files []string) bool {
	for _, path := range files {
		if pattern.MatchString(path) {
			return true
		}
	}
	return false
}
