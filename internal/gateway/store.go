// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gateway persists selected candidates as trust-tiered commit
// records. Verified bibliographic facts are only ever written from a fresh
// provider fetch keyed by identifier; caller-supplied payloads are isolated
// to the agent-note tier behind an explicit fallback flag, and user notes
// are append-only and never generated or edited by the gateway.
// Implements: prd012-commit (R1-R5);
//
//	docs/ARCHITECTURE § Commit Gateway.
package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litsearch/pkg/types"
)

const dbFile = "references.db"

// Store manages the commit-record SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the commit database at storeDir/references.db,
// creating the schema if it does not exist.
func NewStore(cfg types.GatewayConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(cfg.StoreDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
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
		`CREATE TABLE IF NOT EXISTS commits (
			identifier TEXT PRIMARY KEY,
			tier TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year INTEGER,
			abstract TEXT,
			source TEXT,
			committed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			identifier TEXT NOT NULL REFERENCES commits(identifier),
			note TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_identifier ON notes(identifier)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// upsert writes or refreshes a commit record. Notes live in their own table
// and are untouched by payload refreshes.
func (s *Store) upsert(ctx context.Context, identifier string, tier types.ProvenanceTier, payload types.CommitPayload, at time.Time) error {
	authorsJSON, _ := json.Marshal(payload.Authors)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commits (identifier, tier, title, authors, year, abstract, source, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(identifier) DO UPDATE SET
			tier=excluded.tier, title=excluded.title, authors=excluded.authors,
			year=excluded.year, abstract=excluded.abstract, source=excluded.source,
			committed_at=excluded.committed_at`,
		identifier, string(tier), payload.Title, string(authorsJSON),
		payload.Year, payload.Abstract, payload.Source,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting commit: %w", err)
	}
	return nil
}

// Exists reports whether a commit record exists for identifier.
func (s *Store) Exists(ctx context.Context, identifier string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM commits WHERE identifier = ?`, identifier,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking commit: %w", err)
	}
	return n > 0, nil
}

// Get returns the commit record for identifier, with its user notes, or
// sql.ErrNoRows wrapped when none exists.
func (s *Store) Get(ctx context.Context, identifier string) (*types.CommitRecord, error) {
	var (
		rec         types.CommitRecord
		tier        string
		authorsJSON sql.NullString
		committedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT identifier, tier, title, authors, year, abstract, source, committed_at
		 FROM commits WHERE identifier = ?`, identifier,
	).Scan(&rec.Identifier, &tier, &rec.Payload.Title, &authorsJSON,
		&rec.Payload.Year, &rec.Payload.Abstract, &rec.Payload.Source, &committedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no commit record for %s: %w", identifier, err)
		}
		return nil, fmt.Errorf("reading commit: %w", err)
	}

	rec.Tier = types.ProvenanceTier(tier)
	if authorsJSON.Valid {
		json.Unmarshal([]byte(authorsJSON.String), &rec.Payload.Authors)
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, committedAt); parseErr == nil {
		rec.CommittedAt = t
	}

	notes, err := s.notes(ctx, identifier)
	if err != nil {
		return nil, err
	}
	rec.UserNotes = notes
	return &rec, nil
}

// appendNote adds one user note. Notes are never updated or deleted.
func (s *Store) appendNote(ctx context.Context, identifier, note string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (identifier, note, created_at) VALUES (?, ?, ?)`,
		identifier, note, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

func (s *Store) notes(ctx context.Context, identifier string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT note FROM notes WHERE identifier = ? ORDER BY rowid`, identifier)
	if err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
