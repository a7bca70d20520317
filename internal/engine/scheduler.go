package engine

import (
	"fmt"
	"time"

	"github.com/revisitapp/revisit/internal/store"
)

const (
	initialIntervalDays = 1
	maxIntervalDays     = 30

	dayMillis = int64(24 * time.Hour / time.Millisecond)
)

// Review multipliers applied by the scorer depending on where a bookmark
// sits in its review cycle.
const (
	multiplierOverdue     = 1.2
	multiplierApproaching = 1.1
	multiplierNone        = 1.0
	multiplierRecent      = 0.9
)

// ReviewScheduler owns review records: intervals double on each review,
// capped at 30 days, and never shrink or reset on their own.
type ReviewScheduler struct {
	db  *store.DB
	now func() time.Time
}

// NewReviewScheduler creates a scheduler over the given store.
func NewReviewScheduler(db *store.DB) *ReviewScheduler {
	return &ReviewScheduler{db: db, now: time.Now}
}

// RecordReview registers a review of the bookmark: first review starts a
// 1-day interval, each subsequent review doubles it up to the cap.
func (s *ReviewScheduler) RecordReview(bookmarkID string) error {
	now := s.now().UnixMilli()

	existing, err := s.db.GetReview(bookmarkID)
	if err != nil {
		return fmt.Errorf("record review: %w", err)
	}

	if existing == nil {
		return s.db.PutReview(&store.ReviewRecord{
			BookmarkID:   bookmarkID,
			LastReview:   now,
			IntervalDays: initialIntervalDays,
			ReviewCount:  1,
			NextReview:   now + initialIntervalDays*dayMillis,
		})
	}

	interval := existing.IntervalDays * 2
	if interval > maxIntervalDays {
		interval = maxIntervalDays
	}

	existing.LastReview = now
	existing.IntervalDays = interval
	existing.ReviewCount++
	existing.NextReview = now + int64(interval)*dayMillis
	return s.db.PutReview(existing)
}

// Multiplier returns the review adjustment for a bookmark at the given
// time. A store failure degrades to the neutral multiplier.
func (s *ReviewScheduler) Multiplier(bookmarkID string, now time.Time) float64 {
	rec, err := s.db.GetReview(bookmarkID)
	if err != nil {
		return multiplierNone
	}
	return reviewMultiplier(rec, now)
}

// reviewMultiplier maps a review record to exactly one of
// {0.9, 1.0, 1.1, 1.2}.
func reviewMultiplier(rec *store.ReviewRecord, now time.Time) float64 {
	if rec == nil {
		return multiplierNone
	}

	nowMs := now.UnixMilli()
	if nowMs >= rec.NextReview {
		return multiplierOverdue
	}

	intervalMs := int64(rec.IntervalDays) * dayMillis
	if nowMs-rec.LastReview >= int64(0.7*float64(intervalMs)) {
		return multiplierApproaching
	}
	return multiplierRecent
}
