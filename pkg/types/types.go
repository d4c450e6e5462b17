// Package types contains shared data structures used across the impact pipeline.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

import "time"

// ActivityRecord represents one merged pull request inside the trailing
// window. Records are constructed by the ingestion pipeline and never
// mutated afterwards.
type ActivityRecord struct {
	CreatedAt    time.Time
	MergedAt     time.Time
	UpdatedAt    time.Time
	Title        string
	URL          string
	Author       string
	Files        []string
	Labels       []string
	Reviews      []ReviewRecord
	Number       int
	ChangedFiles int
	Additions    int
	Deletions    int
	CommentCount int
}

// Churn is the total line churn of the record (additions plus deletions).
func (r ActivityRecord) Churn() int {
	return r.Additions + r.Deletions
}

// ReviewRecord is one review submitted on a pull request. Reviews without a
// submission timestamp are dropped during ingestion, so SubmittedAt is
// always set. Submission before the parent's creation time is tolerated
// (out-of-order clocks are not corrected).
type ReviewRecord struct {
	SubmittedAt time.Time
	Reviewer    string
	State       string // "APPROVED", "CHANGES_REQUESTED", "COMMENTED", ...
}

// ContributorScore holds the decomposed impact score for one contributor.
// Scores are recomputed wholesale on every scoring run.
type ContributorScore struct {
	Contributor string
	Delivery    float64
	Reviews     float64
	Leadership  float64
	Total       float64
	Bullets     []string
	Evidence    []EvidenceLink
}

// EvidenceLink points at one authored record backing a contributor's score.
type EvidenceLink struct {
	Title  string
	URL    string
	Why    string
	Points float64
}

// ScoreReason is a single weighted factor produced while scoring one record.
// It is transient: consumed by the evidence formatter, never persisted.
type ScoreReason struct {
	Factor string
	Points float64
}

// ActivityPage is one page of raw pull nodes returned by the transport
// client, before any window filtering or normalization.
type ActivityPage struct {
	Nodes       []PullNode
	EndCursor   string
	HasNextPage bool
}

// PullNode is the wire shape of one pull request node as returned by the
// GraphQL API. Fields the API omitted stay at their zero values; the
// ingestion pipeline owns defaulting.
type PullNode struct {
	CreatedAt    time.Time
	MergedAt     time.Time
	UpdatedAt    time.Time
	Title        string
	URL          string
	Author       string
	Files        []string
	Labels       []string
	Reviews      []ReviewNode
	Number       int
	ChangedFiles int
	Additions    int
	Deletions    int
	CommentCount int
}

// ReviewNode is the wire shape of one embedded review node. SubmittedAt may
// be zero when the API returned no submission timestamp.
type ReviewNode struct {
	SubmittedAt time.Time
	Author      string
	State       string
}
