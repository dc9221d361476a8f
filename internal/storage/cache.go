// Package storage persists fetched canonical records in a SQLite cache
// so repeated runs skip the network for titles already resolved.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache wraps a SQLite database of raw BibTeX records keyed by the
// search title.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			title TEXT PRIMARY KEY,
			bibtex TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the cached record for a title, with ok reporting whether
// an entry was present.
func (c *Cache) Get(title string) (string, bool, error) {
	var bibtex string
	err := c.db.QueryRow(
		"SELECT bibtex FROM records WHERE title = ?", normalizeTitle(title),
	).Scan(&bibtex)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying cache: %w", err)
	}
	return bibtex, true, nil
}

// Put stores a record for a title, replacing any previous record.
func (c *Cache) Put(title, bibtex string) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO records (title, bibtex, fetched_at) VALUES (?, ?, ?)",
		normalizeTitle(title), bibtex, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing cache record: %w", err)
	}
	return nil
}

// normalizeTitle folds case and whitespace so lookups are stable across
// cosmetic differences in the source file.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
