// Package store persists the conversation catalog and its fingerprint
// ledger across process restarts, so a rebuild only has to reconcile what
// changed on disk rather than re-ingest the whole corpus (spec §4.2, §9).
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/siftdev/sift/internal/model"
)

// Store wraps the catalog DuckDB file at <stateDir>/catalog.db.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the catalog database under stateDir
// and ensures its schema exists.
func Open(stateDir string) (*Store, error) {
	path := filepath.Join(stateDir, "catalog.db")
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog database %s: %w", path, err)
	}
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces a conversation row and its fingerprint ledger
// entry, the remove-then-insert commit protocol spec §4.2 asks for so a
// partially-applied update can never leave stale postings behind.
func (s *Store) Upsert(c model.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete conversation %s: %w", c.ID, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO conversations
		 (id, source_path, project, size_bytes, mod_time, first_timestamp, last_timestamp, message_count, duration_millis, content_fingerprint)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.SourcePath, c.Project, c.SizeBytes, c.ModTime,
		nullIfZero(c.FirstTimestamp), nullIfZero(c.LastTimestamp), c.MessageCount, c.DurationMillis, c.ContentFingerprint,
	); err != nil {
		return fmt.Errorf("insert conversation %s: %w", c.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM fingerprints WHERE conversation_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete fingerprint %s: %w", c.ID, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO fingerprints (conversation_id, content_fingerprint, updated_at) VALUES ($1, $2, $3)`,
		c.ID, c.ContentFingerprint, time.Now(),
	); err != nil {
		return fmt.Errorf("insert fingerprint %s: %w", c.ID, err)
	}

	return tx.Commit()
}

// Remove deletes a conversation and its fingerprint entry, used when the
// Catalog detects the source file was deleted.
func (s *Store) Remove(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM fingerprints WHERE conversation_id = $1`, id); err != nil {
		return fmt.Errorf("delete fingerprint %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return tx.Commit()
}

// Fingerprint returns the last-known content fingerprint for id, and
// found=false if no entry exists.
func (s *Store) Fingerprint(id string) (fingerprint string, found bool, err error) {
	err = s.db.QueryRow(
		`SELECT content_fingerprint FROM fingerprints WHERE conversation_id = $1`, id,
	).Scan(&fingerprint)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query fingerprint %s: %w", id, err)
	}
	return fingerprint, true, nil
}

// All returns every conversation row, ordered by id, for catalog
// reconciliation at startup.
func (s *Store) All() ([]model.Conversation, error) {
	rows, err := s.db.Query(
		`SELECT id, source_path, project, size_bytes, mod_time,
		        COALESCE(first_timestamp, TIMESTAMP '1970-01-01'),
		        COALESCE(last_timestamp, TIMESTAMP '1970-01-01'),
		        message_count, duration_millis, content_fingerprint
		 FROM conversations ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(
			&c.ID, &c.SourcePath, &c.Project, &c.SizeBytes, &c.ModTime,
			&c.FirstTimestamp, &c.LastTimestamp, &c.MessageCount, &c.DurationMillis, &c.ContentFingerprint,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns a single conversation row by id, used by the "show" command
// for session drill-down.
func (s *Store) Get(id string) (model.Conversation, bool, error) {
	var c model.Conversation
	err := s.db.QueryRow(
		`SELECT id, source_path, project, size_bytes, mod_time,
		        COALESCE(first_timestamp, TIMESTAMP '1970-01-01'),
		        COALESCE(last_timestamp, TIMESTAMP '1970-01-01'),
		        message_count, duration_millis, content_fingerprint
		 FROM conversations WHERE id = $1`, id,
	).Scan(
		&c.ID, &c.SourcePath, &c.Project, &c.SizeBytes, &c.ModTime,
		&c.FirstTimestamp, &c.LastTimestamp, &c.MessageCount, &c.DurationMillis, &c.ContentFingerprint,
	)
	if err == sql.ErrNoRows {
		return model.Conversation{}, false, nil
	}
	if err != nil {
		return model.Conversation{}, false, fmt.Errorf("query conversation %s: %w", id, err)
	}
	return c, true, nil
}

// DB exposes the underlying *sql.DB for the raw SQL analytics query
// surface (spec §6 "sift query"). Read-only use is the caller's
// responsibility to enforce.
func (s *Store) DB() *sql.DB {
	return s.db
}

func nullIfZero(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
