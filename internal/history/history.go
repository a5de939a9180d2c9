// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite index of completed pipeline runs and
// a full-text index over the recognized Markdown, so earlier OCR
// output can be listed and searched without re-processing documents.
// Implements: prd006-history (R1-R4).
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ocr-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "ocr-engine.db"
)

// Store manages the processing history SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the history database at
// historyDir/index/ocr-engine.db, creating the schema if needed.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.HistoryDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
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
		`CREATE TABLE IF NOT EXISTS runs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source_path TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			markdown_path TEXT NOT NULL,
			page_count INTEGER,
			asset_count INTEGER,
			exported_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over the recognized text, synced by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='runs_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE TABLE IF NOT EXISTS run_text (
				run_rowid INTEGER PRIMARY KEY REFERENCES runs(rowid) ON DELETE CASCADE,
				content TEXT NOT NULL
			)`,
			`CREATE VIRTUAL TABLE runs_fts USING fts5(content, content=run_text, content_rowid=run_rowid)`,
			`CREATE TRIGGER run_text_ai AFTER INSERT ON run_text BEGIN
				INSERT INTO runs_fts(rowid, content) VALUES (new.run_rowid, new.content);
			END`,
			`CREATE TRIGGER run_text_ad AFTER DELETE ON run_text BEGIN
				INSERT INTO runs_fts(runs_fts, rowid, content) VALUES('delete', old.run_rowid, old.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// Record stores a completed run and its recognized text in one
// transaction.
func (s *Store) Record(ctx context.Context, receipt *types.ExportReceipt, markdown string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, output_dir, markdown_path, page_count, asset_count, exported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		receipt.RunID, receipt.SourcePath, receipt.OutputDir, receipt.MarkdownPath,
		receipt.PageCount, receipt.AssetCount, receipt.ExportedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	rowid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run rowid: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_text (run_rowid, content) VALUES (?, ?)`, rowid, markdown,
	); err != nil {
		return fmt.Errorf("inserting run text: %w", err)
	}

	return tx.Commit()
}

// Entry is one processed document in the history.
type Entry struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	SourcePath   string    `json:"source_path" yaml:"source_path"`
	OutputDir    string    `json:"output_dir" yaml:"output_dir"`
	MarkdownPath string    `json:"markdown_path" yaml:"markdown_path"`
	PageCount    int       `json:"page_count" yaml:"page_count"`
	AssetCount   int       `json:"asset_count" yaml:"asset_count"`
	ExportedAt   time.Time `json:"exported_at" yaml:"exported_at"`

	// Snippet holds a fragment of the matched text for lookups.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Recent returns the most recently exported runs, newest first. A
// non-positive limit uses the store default.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, output_dir, markdown_path, page_count, asset_count, exported_at
		 FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, false)
}

// Lookup runs an FTS5 full-text query over the recognized Markdown and
// returns matching runs ranked by relevance, with a match snippet.
func (s *Store) Lookup(ctx context.Context, query string, limit int) ([]Entry, error) {
	if query == "" {
		return nil, fmt.Errorf("empty lookup query")
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.source_path, r.output_dir, r.markdown_path, r.page_count, r.asset_count, r.exported_at,
			snippet(runs_fts, 0, '', '', '…', 12)
		 FROM runs_fts
		 JOIN runs r ON r.rowid = runs_fts.rowid
		 WHERE runs_fts MATCH ?
		 ORDER BY runs_fts.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history index: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, true)
}

func scanEntries(rows *sql.Rows, withSnippet bool) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			exportedAt string
			snippet    sql.NullString
		)

		dest := []any{&e.RunID, &e.SourcePath, &e.OutputDir, &e.MarkdownPath,
			&e.PageCount, &e.AssetCount, &exportedAt}
		if withSnippet {
			dest = append(dest, &snippet)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if t, err := time.Parse(time.RFC3339, exportedAt); err == nil {
			e.ExportedAt = t
		}
		if snippet.Valid {
			e.Snippet = snippet.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
