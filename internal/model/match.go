package model

import "time"

// MatchTier classifies a matching rule by how it establishes identity.
type MatchTier string

const (
	TierDeterministic MatchTier = "deterministic"
	TierProbabilistic MatchTier = "probabilistic"
)

// ConfidenceBand is the coarse reliability class of a match.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "HIGH"
	BandMedium ConfidenceBand = "MEDIUM"
	BandLow    ConfidenceBand = "LOW"
)

// EdgeStatus is the lifecycle state of a match-log row.
type EdgeStatus string

const (
	StatusActive     EdgeStatus = "active"
	StatusSuperseded EdgeStatus = "superseded"
	StatusRejected   EdgeStatus = "rejected"
)

// Match method names, one per tier. InternalDupSystem is the pseudo source
// system used when the employer table is matched against itself.
const (
	MethodExactIdentifier = "exact_identifier"
	MethodExactNameState  = "exact_name_state"
	MethodAggressiveName  = "aggressive_name_state"
	MethodFuzzyNameState  = "fuzzy_name_state"
	MethodExactAddress    = "exact_address"
	MethodPromoted        = "promoted"
	InternalDupSystem     = "internal_dup"
)

// MatchEdge is one row of the unified match log: a link from a source record
// to a canonical employer, or between two employers for the internal
// duplicate pass. Rows are append-only; a new match for the same source
// record supersedes rather than overwrites the old row.
type MatchEdge struct {
	ID            int64          `json:"id"`
	SourceSystem  string         `json:"source_system"`
	SourceID      string         `json:"source_id"`
	TargetID      int64          `json:"target_id"`
	Tier          MatchTier      `json:"match_tier"`
	Method        string         `json:"match_method"`
	Band          ConfidenceBand `json:"confidence_band"`
	Score         float64        `json:"confidence_score"`
	Status        EdgeStatus     `json:"status"`
	NeedsReview   bool           `json:"needs_review"`
	CrossRegionOK bool           `json:"cross_region_ok"`
	RunID         string         `json:"run_id"`
	CreatedAt     time.Time      `json:"created_at"`
}
