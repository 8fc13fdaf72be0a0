// Package history derives and persists the site's change ledger. The prior
// state of the content tree is kept as a fingerprint snapshot in SQLite, read
// once per run; the ledger itself is an append-only CSV file, the
// authoritative human-readable record of what changed and when.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mogura/novelpress/internal/content"
)

// PageState is one page's entry in the prior-state snapshot.
type PageState struct {
	Fingerprint string
	UpdatedAt   time.Time
}

// StateStore persists the fingerprint snapshot between runs using SQLite.
// Use ":memory:" for tests.
type StateStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenState opens (creating if needed) the snapshot database.
func OpenState(dbPath string) (*StateStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	store := &StateStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize state schema: %w", err)
	}
	return store, nil
}

func (s *StateStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		work TEXT NOT NULL,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (work, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Snapshot loads the full prior state. An empty result is the bootstrap case,
// not an error.
func (s *StateStore) Snapshot(ctx context.Context) (map[content.PageRef]PageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT work, path, fingerprint, updated_at FROM pages")
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	out := make(map[content.PageRef]PageState)
	for rows.Next() {
		var work, path, fp string
		var updated int64
		if err := rows.Scan(&work, &path, &fp, &updated); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out[content.PageRef{Work: work, Path: path}] = PageState{
			Fingerprint: fp,
			UpdatedAt:   time.Unix(updated, 0).UTC(),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}

// Replace swaps the snapshot for the current state in a single transaction,
// so an interrupted run can never leave a half-written snapshot.
func (s *StateStore) Replace(ctx context.Context, pages []content.Page, dates map[content.PageRef]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	for _, p := range pages {
		updated := dates[p.Ref]
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO pages (work, path, fingerprint, updated_at) VALUES (?, ?, ?, ?)",
			p.Ref.Work, p.Ref.Path, p.Fingerprint, updated.Unix(),
		); err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *StateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
