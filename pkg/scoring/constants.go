// Package scoring converts the activity table into explainable
// per-contributor impact scores.
package scoring

import (
	"regexp"
	"time"
)

// Scoring weights. Fixed, human-chosen constants: the model is heuristic
// and explainable, never learned.
const (
	basePoints       = 10.0 // any merged pull request
	sizeMBonus       = 4.0  // medium-sized change
	sizeLBonus       = 8.0  // large change
	testsDocsBonus   = 2.0  // touched test or documentation paths
	bugfixBonus      = 3.0  // bugfix/regression/incident title vocabulary
	infraBonus       = 3.0  // touched infra or tooling paths
	reviewPoints     = 2.0  // any submitted review, regardless of disposition
	earlyReviewBonus = 1.0  // review submitted within a day of PR creation

	// earlyReviewWindow is exclusive: a review at exactly 24h is not early.
	earlyReviewWindow = 24 * time.Hour

	// Size tier boundaries, checked S then M, else L. A change with few
	// files but huge churn falls through to L.
	sizeSMaxFiles = 5
	sizeSMaxChurn = 200
	sizeMMaxFiles = 20
	sizeMMaxChurn = 800

	defaultMultiplier = 1.0

	// Evidence bounds.
	maxEvidenceBullets = 3
	maxEvidenceLinks   = 3
)

// areaMultiplier pairs a path pattern with its multiplicative boost.
type areaMultiplier struct {
	pattern    *regexp.Regexp
	multiplier float64
}

// coreMultipliers weight "core" against "peripheral" contributions. The
// list is ordered and the first pattern matching any touched path wins;
// multipliers are never combined.
var coreMultipliers = []areaMultiplier{
	{regexp.MustCompile(`^(src|app|apps|api|lib|pkg|internal|backend|frontend|server|web)/`), 1.3},
	{regexp.MustCompile(`^(infrastructure|terraform|ops|docker|\.github|helm|kubernetes)/`), 1.25},
}

var (
	// bugfixPattern matches bugfix/regression/incident vocabulary in titles.
	bugfixPattern = regexp.MustCompile(`(?i)\b(fix|bug|regress|hotfix|incident|crash)\b`)

	// testsDocsPattern matches test and documentation path segments.
	testsDocsPattern = regexp.MustCompile(`(?i)(^|/)(test|tests|__tests__|docs|doc|documentation)(/|$)`)

	// infraPattern matches infra and tooling path segments. Records
	// matching it attribute their whole score to leadership.
	infraPattern = regexp.MustCompile(`(?i)(^|/)(\.github|ci|infra|infrastructure|terraform|docker|kubernetes|helm)(/|$)`)
)

// botLogins are automation accounts excluded from leaderboard rendering.
var botLogins = map[string]struct{}{
	"github-actions":      {},
	"github-actions[bot]": {},
	"dependabot":          {},
	"dependabot[bot]":     {},
	"renovate[bot]":       {},
}

// IsBot reports whether login belongs to a known automation account.
func IsBot(login string) bool {
	_, ok := botLogins[login]
	return ok
}
