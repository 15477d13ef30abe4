package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Index is an optional secondary index over the on-disk artifact store,
// used only for enumeration and debugging (`jacc cache ls`). The flat
// <basename>_<hash>.jbc layout on disk remains the single source of truth
// for hit/miss decisions — per §6's cache-layout contract ("No index
// file; enumeration is optional") — the index is rebuildable from it at
// any time and never consulted by Get/Put. Grounded on the teacher's
// cmd/query-kb sqlite usage (database/sql over modernc.org/sqlite).
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if necessary) a sqlite index file at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open index: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	filename     TEXT PRIMARY KEY,
	lang_version TEXT NOT NULL,
	source_mtime INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying sqlite handle.
func (ix *Index) Close() error { return ix.db.Close() }

// Rebuild clears and repopulates the index by scanning every .jbc file
// under dir, discarding any that fail to parse (the flat files remain
// authoritative; a corrupt entry here is simply skipped).
func (ix *Index) Rebuild(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: list %s: %w", dir, err)
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin index rebuild: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		tx.Rollback()
		return fmt.Errorf("cache: clear index: %w", err)
	}

	for _, de := range entries {
		if filepath.Ext(de.Name()) != ".jbc" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO entries (filename, lang_version, source_mtime) VALUES (?, ?, ?)`,
			de.Name(), e.LangVersion, e.SourceModTime,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("cache: index insert %s: %w", de.Name(), err)
		}
	}
	return tx.Commit()
}

// IndexRow is one enumerated cache entry.
type IndexRow struct {
	Filename     string
	LangVersion  string
	SourceModTime int64
}

// List returns every indexed entry, for `jacc cache ls`.
func (ix *Index) List() ([]IndexRow, error) {
	rows, err := ix.db.Query(`SELECT filename, lang_version, source_mtime FROM entries ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("cache: query index: %w", err)
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		if err := rows.Scan(&r.Filename, &r.LangVersion, &r.SourceModTime); err != nil {
			return nil, fmt.Errorf("cache: scan index row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
