// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// ErrNotFound indicates the requested paper does not exist.
var ErrNotFound = errors.New("paper not found")

// TransitionError reports an attempt to move a paper between two states the
// lifecycle does not connect.
type TransitionError struct {
	PaperID string
	From    types.Status
	To      types.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s for paper %s", e.From, e.To, e.PaperID)
}

// transitions is the set of legal outgoing edges per status. Requeue edges
// (detailFailed -> pendingTitles, downloadFailed -> TobeDownloaded or, with a
// metadata clear, -> pendingTitles) are included; analyzed is terminal.
var transitions = map[types.Status][]types.Status{
	types.StatusPendingTitles:  {types.StatusToBeDownloaded, types.StatusDetailFailed},
	types.StatusToBeDownloaded: {types.StatusProcessed, types.StatusDownloadFailed},
	types.StatusProcessed:      {types.StatusAnalyzed},
	types.StatusDetailFailed:   {types.StatusPendingTitles},
	types.StatusDownloadFailed: {types.StatusToBeDownloaded, types.StatusPendingTitles},
	types.StatusAnalyzed:       {},
}

func legalTransition(from, to types.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InsertPaper inserts a record for a collected title. The ID is the arXiv
// ID when known, else a stable hash of the title; insertion is idempotent,
// so a duplicate ID or canonical identifier is silently ignored. It reports
// whether a new record was created.
func (s *Store) InsertPaper(ctx context.Context, p types.Paper) (bool, error) {
	if p.Title == "" {
		return false, fmt.Errorf("paper title is required")
	}
	if p.ID == "" {
		p.ID = types.PaperID(p.ArxivID, p.Title)
	}
	if p.Status == "" {
		p.Status = types.StatusPendingTitles
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	authorsJSON, _ := json.Marshal(p.Authors)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO papers
		 (id, title, arxiv_id, pdf_url, authors, abstract, published_date, source, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, nullable(p.ArxivID), nullable(p.PDFURL), string(authorsJSON),
		p.Abstract, p.PublishedDate, p.Source, string(p.Status),
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("inserting paper: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// InsertTitles inserts one pendingTitles record per collected title and
// returns the number of new records.
func (s *Store) InsertTitles(ctx context.Context, titles []types.TitleRecord) (int, error) {
	inserted := 0
	for _, tr := range titles {
		if tr.Title == "" {
			continue
		}
		ok, err := s.InsertPaper(ctx, types.Paper{
			Title:         tr.Title,
			PDFURL:        tr.URL,
			Source:        tr.Source,
			PublishedDate: tr.PublishedDate,
			Status:        types.StatusPendingTitles,
		})
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// GetPaper returns the paper with the given ID, or ErrNotFound.
func (s *Store) GetPaper(ctx context.Context, id string) (*types.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, arxiv_id, pdf_url, authors, abstract, published_date, source, status, created_at
		 FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListByStatus returns papers in the given status bucket, oldest first.
// A non-positive limit returns all matching records.
func (s *Store) ListByStatus(ctx context.Context, status types.Status, limit int) ([]types.Paper, error) {
	query := `SELECT id, title, arxiv_id, pdf_url, authors, abstract, published_date, source, status, created_at
		  FROM papers WHERE status = ? ORDER BY created_at`
	args := []any{string(status)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers by status: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, rows.Err()
}

// UpdateStatus moves a paper to the next lifecycle state. It rejects
// transitions the state machine does not define with a TransitionError.
func (s *Store) UpdateStatus(ctx context.Context, id string, next types.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM papers WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading current status: %w", err)
	}

	from := types.Status(current)
	if !legalTransition(from, next) {
		return &TransitionError{PaperID: id, From: from, To: next}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE papers SET status = ? WHERE id = ?`, string(next), id); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return tx.Commit()
}

// UpdateResolved writes resolved bibliographic metadata onto a paper
// record. The status is not touched; callers advance it separately via
// UpdateStatus so each step commits its own transition.
func (s *Store) UpdateResolved(ctx context.Context, id string, c types.Candidate) error {
	authorsJSON, _ := json.Marshal(c.Authors)
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers SET arxiv_id = ?, pdf_url = ?, authors = ?, abstract = ?, published_date = ?
		 WHERE id = ?`,
		nullable(c.ArxivID), nullable(c.PDFURL), string(authorsJSON),
		c.Abstract, c.PublishedDate, id,
	)
	if err != nil {
		return fmt.Errorf("updating resolved metadata: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearResolved erases previously resolved metadata so a requeued paper is
// not retried against the same bad resolution.
func (s *Store) ClearResolved(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE papers SET arxiv_id = NULL, pdf_url = NULL, authors = '[]',
		 abstract = '', published_date = '' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clearing resolved metadata: %w", err)
	}
	return nil
}

// PurgeUnresolvable deletes detailFailed records whose resolution yielded
// no usable document link, together with their ledger entries. This is the
// only path that physically removes paper records.
func (s *Store) PurgeUnresolvable(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM detail_failures WHERE paper_id IN
		 (SELECT id FROM papers WHERE status = ? AND (pdf_url IS NULL OR pdf_url = ''))`,
		string(types.StatusDetailFailed)); err != nil {
		return 0, fmt.Errorf("purging ledger entries: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM papers WHERE status = ? AND (pdf_url IS NULL OR pdf_url = '')`,
		string(types.StatusDetailFailed))
	if err != nil {
		return 0, fmt.Errorf("purging papers: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*types.Paper, error) {
	var (
		p         types.Paper
		arxivID   sql.NullString
		pdfURL    sql.NullString
		authors   sql.NullString
		abstract  sql.NullString
		pubDate   sql.NullString
		source    sql.NullString
		createdAt sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &arxivID, &pdfURL, &authors,
		&abstract, &pubDate, &source, &p.Status, &createdAt)
	if err != nil {
		return nil, err
	}

	p.ArxivID = arxivID.String
	p.PDFURL = pdfURL.String
	p.Abstract = abstract.String
	p.PublishedDate = pubDate.String
	p.Source = source.String
	if authors.String != "" {
		if err := json.Unmarshal([]byte(authors.String), &p.Authors); err != nil {
			p.Authors = nil
		}
	}
	if createdAt.String != "" {
		if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
			p.CreatedAt = t
		}
	}
	return &p, nil
}

// nullable maps an empty string to SQL NULL so UNIQUE columns do not
// collide on "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
