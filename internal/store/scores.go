package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ScoreRecord holds the base relevance score produced by the scoring job.
// The engine only reads these; a missing record means "not scored yet".
type ScoreRecord struct {
	BookmarkID string
	BaseScore  float64
	Factors    map[string]float64
	UpdatedAt  int64
}

// GetScore returns the score record for a bookmark, or nil if none exists.
func (db *DB) GetScore(bookmarkID string) (*ScoreRecord, error) {
	var s ScoreRecord
	var factors sql.NullString
	err := db.QueryRow(`
		SELECT bookmark_id, base_score, factors, updated_at FROM scores WHERE bookmark_id = ?
	`, bookmarkID).Scan(&s.BookmarkID, &s.BaseScore, &factors, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}
	if factors.Valid && factors.String != "" {
		if err := json.Unmarshal([]byte(factors.String), &s.Factors); err != nil {
			// Opaque sub-scores are advisory; a bad blob does not lose the base score.
			s.Factors = nil
		}
	}
	return &s, nil
}

// PutScore inserts or replaces the score record for a bookmark.
func (db *DB) PutScore(bookmarkID string, baseScore float64, factors map[string]float64) error {
	var blob []byte
	if len(factors) > 0 {
		var err error
		blob, err = json.Marshal(factors)
		if err != nil {
			return fmt.Errorf("marshal factors: %w", err)
		}
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO scores (bookmark_id, base_score, factors, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(bookmark_id) DO UPDATE SET
			base_score = excluded.base_score,
			factors = excluded.factors,
			updated_at = excluded.updated_at
	`, bookmarkID, baseScore, string(blob), now)
	if err != nil {
		return fmt.Errorf("put score: %w", err)
	}
	return nil
}

// AllScores returns base scores keyed by bookmark id.
func (db *DB) AllScores() (map[string]float64, error) {
	rows, err := db.Query(`SELECT bookmark_id, base_score FROM scores`)
	if err != nil {
		return nil, fmt.Errorf("all scores: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		result[id] = score
	}
	return result, rows.Err()
}
