// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the survey-engine pipeline.
package types

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Status is the lifecycle state of a paper record. Every pipeline stage
// reads one status bucket and writes the next.
type Status string

const (
	// StatusPendingTitles is the initial state: a collected title awaiting
	// bibliographic resolution.
	StatusPendingTitles Status = "pendingTitles"

	// StatusToBeDownloaded means resolution succeeded and the paper has a
	// document URL awaiting retrieval.
	StatusToBeDownloaded Status = "TobeDownloaded"

	// StatusProcessed means the PDF was retrieved and its text extracted.
	StatusProcessed Status = "processed"

	// StatusAnalyzed is terminal: the relevance classifier has run.
	StatusAnalyzed Status = "analyzed"

	// StatusDetailFailed means bibliographic resolution exhausted its
	// options. Entered only from pendingTitles; left only by requeue.
	StatusDetailFailed Status = "detailFailed"

	// StatusDownloadFailed means retrieval or extraction failed. Entered
	// only from TobeDownloaded; left only by requeue.
	StatusDownloadFailed Status = "downloadFailed"
)

// Paper holds bibliographic metadata and lifecycle state for one work.
type Paper struct {
	// ID is the arXiv ID when known, else a stable hash of the title.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as collected. Required, non-empty.
	Title string `json:"title" yaml:"title"`

	// ArxivID is the canonical identifier, set once resolved. Unique
	// across all records when present.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// PDFURL is the resolved document URL.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PublishedDate is an opaque date string taken verbatim from the
	// provider; no calendar validation is applied.
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// Source identifies which collector produced the title (e.g. "arxiv",
	// "neurips2024").
	Source string `json:"source" yaml:"source"`

	// Status is the lifecycle state.
	Status Status `json:"status" yaml:"status"`

	// CreatedAt is when the record was first inserted.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// PaperID returns the record identifier for a paper: the arXiv ID when
// known, else a stable hash of the title.
func PaperID(arxivID, title string) string {
	if arxivID != "" {
		return arxivID
	}
	return TitleHash(title)
}

// TitleHash returns a stable filesystem-safe identifier derived from a title.
func TitleHash(title string) string {
	h := sha256.Sum256([]byte(title))
	return fmt.Sprintf("t-%x", h[:8])
}

// TitleRecord is the unit emitted by title collectors: a bare title plus
// provenance. URL is an optimization hint only; resolution works from the
// title.
type TitleRecord struct {
	Title         string `json:"title" yaml:"title"`
	URL           string `json:"url,omitempty" yaml:"url,omitempty"`
	Source        string `json:"source" yaml:"source"`
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}

// Candidate is one bibliographic match returned by a metadata provider.
// Optional fields are empty when the provider did not supply them; in
// particular a candidate may carry metadata but no document URL.
type Candidate struct {
	Title         string   `json:"title" yaml:"title"`
	ArxivID       string   `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	PDFURL        string   `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	Authors       []string `json:"authors" yaml:"authors"`
	Abstract      string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	PublishedDate string   `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// Provider identifies which backend produced this candidate.
	Provider string `json:"provider" yaml:"provider"`
}
