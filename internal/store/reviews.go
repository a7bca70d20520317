package store

import (
	"database/sql"
	"fmt"
)

// ReviewRecord tracks the spaced-review schedule for one bookmark.
// Times are unix milliseconds.
type ReviewRecord struct {
	BookmarkID   string
	LastReview   int64
	IntervalDays int
	ReviewCount  int
	NextReview   int64
}

// GetReview returns the review record for a bookmark, or nil if none exists.
func (db *DB) GetReview(bookmarkID string) (*ReviewRecord, error) {
	var r ReviewRecord
	err := db.QueryRow(`
		SELECT bookmark_id, last_review, interval_days, review_count, next_review
		FROM reviews WHERE bookmark_id = ?
	`, bookmarkID).Scan(&r.BookmarkID, &r.LastReview, &r.IntervalDays, &r.ReviewCount, &r.NextReview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &r, nil
}

// PutReview inserts or replaces the review record for a bookmark.
func (db *DB) PutReview(r *ReviewRecord) error {
	_, err := db.Exec(`
		INSERT INTO reviews (bookmark_id, last_review, interval_days, review_count, next_review)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bookmark_id) DO UPDATE SET
			last_review = excluded.last_review,
			interval_days = excluded.interval_days,
			review_count = excluded.review_count,
			next_review = excluded.next_review
	`, r.BookmarkID, r.LastReview, r.IntervalDays, r.ReviewCount, r.NextReview)
	if err != nil {
		return fmt.Errorf("put review: %w", err)
	}
	return nil
}

// AllReviews returns every review record keyed by bookmark id.
func (db *DB) AllReviews() (map[string]ReviewRecord, error) {
	rows, err := db.Query(`
		SELECT bookmark_id, last_review, interval_days, review_count, next_review
		FROM reviews
	`)
	if err != nil {
		return nil, fmt.Errorf("all reviews: %w", err)
	}
	defer rows.Close()

	result := make(map[string]ReviewRecord)
	for rows.Next() {
		var r ReviewRecord
		if err := rows.Scan(&r.BookmarkID, &r.LastReview, &r.IntervalDays, &r.ReviewCount, &r.NextReview); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		result[r.BookmarkID] = r
	}
	return result, rows.Err()
}
