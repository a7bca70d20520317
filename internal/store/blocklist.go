package store

import (
	"fmt"
	"time"

	"github.com/revisitapp/revisit/internal/urlutil"
)

// Block kinds, as stored in the blocklist table.
const (
	BlockKindBookmark = "bookmark"
	BlockKindFolder   = "folder"
	BlockKindDomain   = "domain"
)

// BlockList holds every active exclusion, split by kind. Domains are
// normalized (lowercase, no leading "www.").
type BlockList struct {
	BookmarkIDs map[string]bool
	FolderIDs   map[string]bool
	Domains     map[string]bool
}

// Block adds an entry to the blocklist. Domains are normalized before
// storage. Re-blocking an existing entry is a no-op.
func (db *DB) Block(kind, value string) error {
	if kind == BlockKindDomain {
		value = urlutil.NormalizeHost(value)
	}
	if value == "" {
		return fmt.Errorf("block %s: empty value", kind)
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO blocklist (kind, value, created_at) VALUES (?, ?, ?)
		ON CONFLICT(kind, value) DO NOTHING
	`, kind, value, now)
	if err != nil {
		return fmt.Errorf("block %s %q: %w", kind, value, err)
	}
	return nil
}

// GetBlockList loads the full blocklist.
func (db *DB) GetBlockList() (*BlockList, error) {
	rows, err := db.Query(`SELECT kind, value FROM blocklist`)
	if err != nil {
		return nil, fmt.Errorf("get blocklist: %w", err)
	}
	defer rows.Close()

	bl := &BlockList{
		BookmarkIDs: make(map[string]bool),
		FolderIDs:   make(map[string]bool),
		Domains:     make(map[string]bool),
	}
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("scan blocklist: %w", err)
		}
		switch kind {
		case BlockKindBookmark:
			bl.BookmarkIDs[value] = true
		case BlockKindFolder:
			bl.FolderIDs[value] = true
		case BlockKindDomain:
			bl.Domains[value] = true
		}
	}
	return bl, rows.Err()
}
