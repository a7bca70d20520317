package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PostponeRecord defers a bookmark's eligibility until a future time.
// Repeat postpones update the same record and bump the count.
type PostponeRecord struct {
	BookmarkID    string
	PostponeUntil int64
	PostponeCount int
	CreatedAt     int64
	UpdatedAt     int64
}

// GetPostpone returns the postpone record for a bookmark, or nil if none exists.
func (db *DB) GetPostpone(bookmarkID string) (*PostponeRecord, error) {
	var p PostponeRecord
	err := db.QueryRow(`
		SELECT bookmark_id, postpone_until, postpone_count, created_at, updated_at
		FROM postpones WHERE bookmark_id = ?
	`, bookmarkID).Scan(&p.BookmarkID, &p.PostponeUntil, &p.PostponeCount, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get postpone: %w", err)
	}
	return &p, nil
}

// Postpone defers a bookmark until the given time. A repeat postpone of the
// same bookmark updates the record in place and increments postpone_count.
func (db *DB) Postpone(bookmarkID string, until int64) (*PostponeRecord, error) {
	now := time.Now().UnixMilli()

	existing, err := db.GetPostpone(bookmarkID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		_, err := db.Exec(`
			INSERT INTO postpones (bookmark_id, postpone_until, postpone_count, created_at, updated_at)
			VALUES (?, ?, 1, ?, ?)
		`, bookmarkID, until, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert postpone: %w", err)
		}
		return &PostponeRecord{
			BookmarkID:    bookmarkID,
			PostponeUntil: until,
			PostponeCount: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	}

	_, err = db.Exec(`
		UPDATE postpones SET postpone_until = ?, postpone_count = postpone_count + 1, updated_at = ?
		WHERE bookmark_id = ?
	`, until, now, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("update postpone: %w", err)
	}

	existing.PostponeUntil = until
	existing.PostponeCount++
	existing.UpdatedAt = now
	return existing, nil
}

// ActivePostpones returns postpone records whose postpone_until is in the
// future, keyed by bookmark id.
func (db *DB) ActivePostpones(now int64) (map[string]PostponeRecord, error) {
	rows, err := db.Query(`
		SELECT bookmark_id, postpone_until, postpone_count, created_at, updated_at
		FROM postpones WHERE postpone_until > ?
	`, now)
	if err != nil {
		return nil, fmt.Errorf("active postpones: %w", err)
	}
	defer rows.Close()

	result := make(map[string]PostponeRecord)
	for rows.Next() {
		var p PostponeRecord
		if err := rows.Scan(&p.BookmarkID, &p.PostponeUntil, &p.PostponeCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan postpone: %w", err)
		}
		result[p.BookmarkID] = p
	}
	return result, rows.Err()
}
