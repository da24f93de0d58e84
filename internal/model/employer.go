// Package model defines the core entities shared across the resolution pipeline.
package model

import "time"

// SourceRecord is one employer record as reported by an external source
// system. Rows are immutable once ingested; re-ingestion upserts on the
// (SourceSystem, SourceID) key rather than mutating in place.
type SourceRecord struct {
	SourceSystem   string            `json:"source_system"`
	SourceID       string            `json:"source_id"`
	DisplayName    string            `json:"display_name"`
	NormalizedName string            `json:"normalized_name"`
	AggressiveName string            `json:"aggressive_name"`
	State          string            `json:"state,omitempty"`
	City           string            `json:"city,omitempty"`
	Street         string            `json:"street,omitempty"`
	Zip            string            `json:"zip,omitempty"`
	Identifier     string            `json:"identifier,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	IngestedAt     time.Time         `json:"ingested_at"`
}

// Employer is a canonical employer row. It is created by ingestion, enriched
// by merges, and removed only as the deleted side of a merge.
type Employer struct {
	ID             int64  `json:"employer_id"`
	DisplayName    string `json:"display_name"`
	NormalizedName string `json:"normalized_name"`
	AggressiveName string `json:"aggressive_name"`
	State          string `json:"state,omitempty"`
	City           string `json:"city,omitempty"`
	Street         string `json:"street,omitempty"`
	Zip            string `json:"zip,omitempty"`
	Identifier     string `json:"identifier,omitempty"`
	ReportedSize   int64  `json:"reported_size"`
	RelationCount  int64  `json:"relation_count"`
	GroupID        *int64 `json:"canonical_group_id,omitempty"`
}

// CanonicalGroup summarizes one connected component of duplicate employers.
// Fully derived from active match edges; dropped and regenerated on each
// clustering run.
type CanonicalGroup struct {
	GroupID          int64     `json:"group_id"`
	CanonicalName    string    `json:"canonical_name"`
	MemberCount      int       `json:"member_count"`
	ConsolidatedSize int64     `json:"consolidated_size"`
	IsMultiRegion    bool      `json:"is_multi_region"`
	ComputedAt       time.Time `json:"computed_at"`
}

// MergeLogEntry is the permanent audit record of one pairwise merge.
type MergeLogEntry struct {
	ID              int64            `json:"id"`
	KeptID          int64            `json:"kept_id"`
	DeletedID       int64            `json:"deleted_id"`
	SimilarityScore float64          `json:"similarity_score"`
	TableCounts     map[string]Moved `json:"table_counts"`
	MergedAt        time.Time        `json:"merged_at"`
}

// Moved holds the per-table outcome of re-pointing foreign keys during a merge.
// Updated + ConflictsDeleted equals the rows that referenced the loser before
// the merge.
type Moved struct {
	Updated          int64 `json:"updated"`
	ConflictsDeleted int64 `json:"conflicts_deleted"`
}
