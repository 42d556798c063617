// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// InsertAnalysis persists a classifier verdict. The relevance score is
// clamped into [0.0, 1.0] before it reaches the database; older rows for
// the paper are retained for audit but only the newest one is returned by
// GetAnalysis.
func (s *Store) InsertAnalysis(ctx context.Context, a types.Analysis) error {
	if a.PaperID == "" {
		return fmt.Errorf("analysis requires a paper ID")
	}
	score := a.RelevanceScore
	if score < 0.0 {
		score = 0.0
	}
	if score > 1.0 {
		score = 1.0
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now().UTC()
	}

	relevant := 0
	if a.IsRelevant {
		relevant = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_results (paper_id, is_relevant, relevance_score, reasoning, summary, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.PaperID, relevant, score, a.Reasoning, a.Summary,
		a.AnalyzedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting analysis result: %w", err)
	}
	return nil
}

// GetAnalysis returns the most recent analysis for a paper, or ErrNotFound.
func (s *Store) GetAnalysis(ctx context.Context, paperID string) (*types.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT paper_id, is_relevant, relevance_score, reasoning, summary, analyzed_at
		 FROM analysis_results WHERE paper_id = ?
		 ORDER BY analyzed_at DESC LIMIT 1`, paperID)

	var (
		a          types.Analysis
		relevant   int
		analyzedAt string
	)
	err := row.Scan(&a.PaperID, &relevant, &a.RelevanceScore, &a.Reasoning, &a.Summary, &analyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading analysis result: %w", err)
	}
	a.IsRelevant = relevant != 0
	if t, err := time.Parse(time.RFC3339Nano, analyzedAt); err == nil {
		a.AnalyzedAt = t
	}
	return &a, nil
}

// RelevantPaper pairs a paper with its authoritative analysis.
type RelevantPaper struct {
	Paper    types.Paper
	Analysis types.Analysis
}

// RelevantPapers returns papers whose newest analysis is relevant with a
// score of at least minScore, highest score first.
func (s *Store) RelevantPapers(ctx context.Context, minScore float64) ([]RelevantPaper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.arxiv_id, p.pdf_url, p.authors, p.abstract,
		        p.published_date, p.source, p.status, p.created_at,
		        a.is_relevant, a.relevance_score, a.reasoning, a.summary, a.analyzed_at
		 FROM papers p
		 JOIN analysis_results a ON a.id = (
			SELECT id FROM analysis_results
			WHERE paper_id = p.id ORDER BY analyzed_at DESC LIMIT 1
		 )
		 WHERE a.is_relevant = 1 AND a.relevance_score >= ?
		 ORDER BY a.relevance_score DESC`, minScore)
	if err != nil {
		return nil, fmt.Errorf("querying relevant papers: %w", err)
	}
	defer rows.Close()

	var out []RelevantPaper
	for rows.Next() {
		var (
			rp         RelevantPaper
			arxivID    sql.NullString
			pdfURL     sql.NullString
			authors    sql.NullString
			abstract   sql.NullString
			pubDate    sql.NullString
			source     sql.NullString
			createdAt  sql.NullString
			relevant   int
			analyzedAt string
		)
		err := rows.Scan(&rp.Paper.ID, &rp.Paper.Title, &arxivID, &pdfURL, &authors,
			&abstract, &pubDate, &source, &rp.Paper.Status, &createdAt,
			&relevant, &rp.Analysis.RelevanceScore, &rp.Analysis.Reasoning,
			&rp.Analysis.Summary, &analyzedAt)
		if err != nil {
			return nil, err
		}
		rp.Paper.ArxivID = arxivID.String
		rp.Paper.PDFURL = pdfURL.String
		rp.Paper.Abstract = abstract.String
		rp.Paper.PublishedDate = pubDate.String
		rp.Paper.Source = source.String
		rp.Analysis.PaperID = rp.Paper.ID
		rp.Analysis.IsRelevant = relevant != 0
		if t, err := time.Parse(time.RFC3339Nano, analyzedAt); err == nil {
			rp.Analysis.AnalyzedAt = t
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// Statistics summarizes the store for operators: totals, the paper count
// per status bucket, and outstanding ledger entries grouped by reason.
type Statistics struct {
	TotalPapers      int                  `json:"total_papers" yaml:"total_papers"`
	StatusCounts     map[types.Status]int `json:"status_counts" yaml:"status_counts"`
	AnalyzedResults  int                  `json:"analyzed_results" yaml:"analyzed_results"`
	RelevantPapers   int                  `json:"relevant_papers" yaml:"relevant_papers"`
	DetailFailures   map[string]int       `json:"detail_failures" yaml:"detail_failures"`
	DownloadFailures map[string]int       `json:"download_failures" yaml:"download_failures"`
}

// Stats gathers aggregate statistics.
func (s *Store) Stats(ctx context.Context) (*Statistics, error) {
	st := &Statistics{StatusCounts: make(map[types.Status]int)}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM papers`).Scan(&st.TotalPapers); err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM papers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.StatusCounts[types.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_results`).Scan(&st.AnalyzedResults); err != nil {
		return nil, fmt.Errorf("counting analyses: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_results WHERE is_relevant = 1`).Scan(&st.RelevantPapers); err != nil {
		return nil, fmt.Errorf("counting relevant papers: %w", err)
	}

	if st.DetailFailures, err = s.FailureCounts(ctx, types.FailureDetail); err != nil {
		return nil, err
	}
	if st.DownloadFailures, err = s.FailureCounts(ctx, types.FailureDownload); err != nil {
		return nil, err
	}
	return st, nil
}
