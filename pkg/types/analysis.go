// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Analysis is the relevance verdict produced by the classification
// collaborator for one paper. The pipeline treats the classifier as opaque
// and only persists its output; older results may be retained for audit but
// the most recent one is authoritative.
type Analysis struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// IsRelevant is the classifier's verdict.
	IsRelevant bool `json:"is_relevant" yaml:"is_relevant"`

	// RelevanceScore lies in [0.0, 1.0]. Values outside the range are
	// clamped at the store boundary.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Reasoning explains the verdict.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Summary is a short digest of the paper.
	Summary string `json:"summary" yaml:"summary"`

	AnalyzedAt time.Time `json:"analyzed_at" yaml:"analyzed_at"`
}

// FailureKind distinguishes the two failure ledgers.
type FailureKind string

const (
	// FailureDetail records a bibliographic resolution failure.
	FailureDetail FailureKind = "detail"

	// FailureDownload records a retrieval or extraction failure.
	FailureDownload FailureKind = "download"
)

// Failure is one outstanding failure-ledger entry. At most one live entry
// exists per paper per kind; inserting a new one supersedes the old.
type Failure struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is denormalized from the paper record for operator convenience.
	Title string `json:"title" yaml:"title"`

	// Source is the origin tag of the paper.
	Source string `json:"source" yaml:"source"`

	// Reason is free text describing why the record is stuck.
	Reason string `json:"reason" yaml:"reason"`

	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}
