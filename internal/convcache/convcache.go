// Package convcache persists two things about a batch conversion across
// runs, in a single SQLite database: each output document's stable frontmatter
// uid, and a content fingerprint used to skip rewriting files whose rendered
// output hasn't changed. Without it every run is from-scratch: a fresh
// uuid per document, and every file rewritten regardless of whether its
// content actually changed.
package convcache

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/inful/mdfp"
	_ "modernc.org/sqlite"
)

// Cache wraps a SQLite database tracking per-document state across runs.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("convcache: open %s: %w", path, err)
	}
	c := &Cache{db: db}
	if err := c.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			stem        TEXT PRIMARY KEY,
			uid         TEXT NOT NULL,
			fingerprint TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("convcache: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// StableUID returns the uid previously assigned to stem, generating and
// persisting a new one the first time stem is seen.
func (c *Cache) StableUID(stem string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var uid string
	err := c.db.QueryRow(`SELECT uid FROM documents WHERE stem = ?`, stem).Scan(&uid)
	if err == nil && uid != "" {
		return uid, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("convcache: lookup uid for %s: %w", stem, err)
	}

	// A row written by Changed before any uid was assigned has uid ''.
	newUID := uuid.NewString()
	if _, err := c.db.Exec(
		`INSERT INTO documents (stem, uid, fingerprint) VALUES (?, ?, '')
		 ON CONFLICT(stem) DO UPDATE SET uid = excluded.uid`, stem, newUID); err != nil {
		return "", fmt.Errorf("convcache: store uid for %s: %w", stem, err)
	}
	return newUID, nil
}

// Changed reports whether rendered's fingerprint differs from the one
// recorded for stem on a previous run, and records the new fingerprint. A
// stem with no fingerprint recorded yet (including one that only has a uid
// from a prior StableUID call) is reported changed.
func (c *Cache) Changed(stem string, rendered []byte) (bool, error) {
	fp := mdfp.CalculateFingerprintFromParts("", string(rendered))

	c.mu.Lock()
	defer c.mu.Unlock()

	var existing string
	err := c.db.QueryRow(`SELECT fingerprint FROM documents WHERE stem = ?`, stem).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return true, fmt.Errorf("convcache: lookup fingerprint for %s: %w", stem, err)
	}
	if err == nil && existing == fp {
		return false, nil
	}

	if _, err := c.db.Exec(
		`INSERT INTO documents (stem, uid, fingerprint) VALUES (?, '', ?)
		 ON CONFLICT(stem) DO UPDATE SET fingerprint = excluded.fingerprint`, stem, fp); err != nil {
		return true, fmt.Errorf("convcache: store fingerprint for %s: %w", stem, err)
	}
	return true, nil
}
