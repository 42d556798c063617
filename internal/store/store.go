// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper records, their lifecycle status, analysis
// results, and the failure ledger in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// Store manages the paper lifecycle database.
type Store struct {
	db *sql.DB
}

// New opens or creates the SQLite database at cfg.DBPath, creating the
// schema if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			arxiv_id TEXT UNIQUE,
			pdf_url TEXT,
			authors TEXT,
			abstract TEXT,
			published_date TEXT,
			source TEXT,
			status TEXT NOT NULL DEFAULT 'pendingTitles',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			is_relevant INTEGER DEFAULT 0,
			relevance_score REAL DEFAULT 0.0,
			reasoning TEXT,
			summary TEXT,
			analyzed_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS detail_failures (
			paper_id TEXT PRIMARY KEY,
			title TEXT,
			source TEXT,
			reason TEXT,
			recorded_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS download_failures (
			paper_id TEXT PRIMARY KEY,
			title TEXT,
			source TEXT,
			reason TEXT,
			recorded_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_source ON papers(source)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_paper_id ON analysis_results(paper_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
