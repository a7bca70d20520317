// Package scoring computes base relevance scores for bookmarks. The
// recommendation engine only reads these records; recomputation is
// requested explicitly and runs as a batch job.
package scoring

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/revisitapp/revisit/internal/bookmarks"
	"github.com/revisitapp/revisit/internal/store"
)

// halfLife is how long until a bookmark's recency factor drops to 0.5.
const halfLife = 90 * 24 * time.Hour

// scoreFloor keeps old bookmarks from scoring to zero; everything stays
// at least faintly recommendable.
const scoreFloor = 0.1

// Job recomputes base scores for the full bookmark set.
type Job struct {
	db  *store.DB
	now func() time.Time
}

// NewJob creates a scoring job writing to the given store.
func NewJob(db *store.DB) *Job {
	return &Job{db: db, now: time.Now}
}

// RecomputeAll scores every bookmark and persists the records. Returns the
// number of records written. Individual write failures are logged and
// skipped; the batch keeps going.
func (j *Job) RecomputeAll(ctx context.Context, bms []bookmarks.Bookmark) (int, error) {
	now := j.now()
	written := 0
	for _, b := range bms {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}

		base, factors := scoreOne(b, now)
		if err := j.db.PutScore(b.ID, base, factors); err != nil {
			log.Printf("scoring: put score for %s: %v", b.ID, err)
			continue
		}
		written++
	}
	return written, nil
}

// scoreOne blends a recency factor (exponential decay on the add date)
// with a depth factor (shallow bookmarks were placed deliberately and
// rank slightly higher). Output is bounded to [scoreFloor, 1].
func scoreOne(b bookmarks.Bookmark, now time.Time) (float64, map[string]float64) {
	recency := 0.5
	if !b.DateAdded.IsZero() {
		age := now.Sub(b.DateAdded)
		if age < 0 {
			age = 0
		}
		recency = math.Pow(0.5, float64(age)/float64(halfLife))
	}

	depth := 1.0 / (1.0 + float64(len(b.AncestorFolderIDs)))

	base := 0.7*recency + 0.3*depth
	if base < scoreFloor {
		base = scoreFloor
	}
	if base > 1 {
		base = 1
	}

	return base, map[string]float64{
		"recency": recency,
		"depth":   depth,
	}
}
