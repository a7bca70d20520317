package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "kv: flat key/value store for session + cache snapshots",
		SQL: `
CREATE TABLE kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "reviews: spaced-review interval tracking per bookmark",
		SQL: `
CREATE TABLE reviews (
    bookmark_id   TEXT PRIMARY KEY,
    last_review   INTEGER NOT NULL,
    interval_days INTEGER NOT NULL,
    review_count  INTEGER NOT NULL DEFAULT 0,
    next_review   INTEGER NOT NULL
);

CREATE INDEX idx_reviews_next ON reviews(next_review);
`,
	},
	{
		Version:     3,
		Description: "postpones: deferred bookmarks with escalating decay",
		SQL: `
CREATE TABLE postpones (
    bookmark_id    TEXT PRIMARY KEY,
    postpone_until INTEGER NOT NULL,
    postpone_count INTEGER NOT NULL DEFAULT 1,
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL
);

CREATE INDEX idx_postpones_until ON postpones(postpone_until);
`,
	},
	{
		Version:     4,
		Description: "blocklist: permanently excluded bookmarks, folders, domains",
		SQL: `
CREATE TABLE blocklist (
    kind       TEXT NOT NULL CHECK (kind IN ('bookmark', 'folder', 'domain')),
    value      TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (kind, value)
);
`,
	},
	{
		Version:     5,
		Description: "scores: base relevance scores from the scoring job",
		SQL: `
CREATE TABLE scores (
    bookmark_id TEXT PRIMARY KEY,
    base_score  REAL NOT NULL,
    factors     TEXT,
    updated_at  INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
