// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/survey-engine/pkg/types"
)

func ledgerTable(kind types.FailureKind) (string, error) {
	switch kind {
	case types.FailureDetail:
		return "detail_failures", nil
	case types.FailureDownload:
		return "download_failures", nil
	default:
		return "", fmt.Errorf("unknown failure kind %q", kind)
	}
}

// RecordFailure writes a ledger entry for a stuck paper. A second entry for
// the same paper supersedes the first; the ledger reflects only the current
// outstanding failure.
func (s *Store) RecordFailure(ctx context.Context, kind types.FailureKind, f types.Failure) error {
	table, err := ledgerTable(kind)
	if err != nil {
		return err
	}
	if f.RecordedAt.IsZero() {
		f.RecordedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+table+` (paper_id, title, source, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		f.PaperID, f.Title, f.Source, f.Reason, f.RecordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording %s failure: %w", kind, err)
	}
	return nil
}

// RemoveFailure deletes a paper's ledger entry, if any.
func (s *Store) RemoveFailure(ctx context.Context, kind types.FailureKind, paperID string) error {
	table, err := ledgerTable(kind)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE paper_id = ?`, paperID); err != nil {
		return fmt.Errorf("removing %s failure: %w", kind, err)
	}
	return nil
}

// ListFailures returns outstanding ledger entries, oldest first. A
// non-positive limit returns all of them.
func (s *Store) ListFailures(ctx context.Context, kind types.FailureKind, limit int) ([]types.Failure, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT paper_id, title, source, reason, recorded_at FROM ` + table + ` ORDER BY recorded_at`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s failures: %w", kind, err)
	}
	defer rows.Close()

	var failures []types.Failure
	for rows.Next() {
		var f types.Failure
		var recordedAt string
		if err := rows.Scan(&f.PaperID, &f.Title, &f.Source, &f.Reason, &recordedAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			f.RecordedAt = t
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// FailureCounts aggregates outstanding ledger entries by reason, so stuck
// records are inspectable without rereading logs.
func (s *Store) FailureCounts(ctx context.Context, kind types.FailureKind) (map[string]int, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM `+table+` GROUP BY reason`)
	if err != nil {
		return nil, fmt.Errorf("counting %s failures: %w", kind, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}

// RequeueDetailFailures moves detailFailed papers back to pendingTitles and
// clears their ledger entries. It returns the requeued papers. Requeue is
// the only path out of a failure state; nothing requeues automatically.
func (s *Store) RequeueDetailFailures(ctx context.Context, limit int) ([]types.Paper, error) {
	failures, err := s.ListFailures(ctx, types.FailureDetail, limit)
	if err != nil {
		return nil, err
	}

	var requeued []types.Paper
	for _, f := range failures {
		if err := s.UpdateStatus(ctx, f.PaperID, types.StatusPendingTitles); err != nil {
			return requeued, fmt.Errorf("requeueing %s: %w", f.PaperID, err)
		}
		if err := s.RemoveFailure(ctx, types.FailureDetail, f.PaperID); err != nil {
			return requeued, err
		}
		p, err := s.GetPaper(ctx, f.PaperID)
		if err != nil {
			return requeued, err
		}
		requeued = append(requeued, *p)
	}
	return requeued, nil
}

// RequeueDownloadFailures moves downloadFailed papers back into the queue
// and clears their ledger entries. With clearMetadata the resolved fields
// are erased and the paper returns to pendingTitles for a fresh resolution;
// otherwise it returns to TobeDownloaded and keeps its document URL. It
// returns the requeued papers so the caller can delete leftover artifacts.
func (s *Store) RequeueDownloadFailures(ctx context.Context, limit int, clearMetadata bool) ([]types.Paper, error) {
	failures, err := s.ListFailures(ctx, types.FailureDownload, limit)
	if err != nil {
		return nil, err
	}

	target := types.StatusToBeDownloaded
	if clearMetadata {
		target = types.StatusPendingTitles
	}

	var requeued []types.Paper
	for _, f := range failures {
		// Capture the record before the metadata clear so the caller still
		// sees which artifacts it owns.
		p, err := s.GetPaper(ctx, f.PaperID)
		if err != nil {
			return requeued, err
		}

		if err := s.UpdateStatus(ctx, f.PaperID, target); err != nil {
			return requeued, fmt.Errorf("requeueing %s: %w", f.PaperID, err)
		}
		if clearMetadata {
			if err := s.ClearResolved(ctx, f.PaperID); err != nil {
				return requeued, err
			}
		}
		if err := s.RemoveFailure(ctx, types.FailureDownload, f.PaperID); err != nil {
			return requeued, err
		}
		if err := s.RemoveFailure(ctx, types.FailureDetail, f.PaperID); err != nil {
			return requeued, err
		}
		requeued = append(requeued, *p)
	}
	return requeued, nil
}
