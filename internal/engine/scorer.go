package engine

import (
	"math"
	"time"

	"github.com/revisitapp/revisit/internal/store"
)

const (
	// MaxPriority caps the combined priority value.
	MaxPriority = 1.5

	// DefaultBaseScore is used when no score record exists yet.
	DefaultBaseScore = 0.5

	// TieEpsilon is the priority difference below which two candidates
	// rank as tied and are ordered randomly.
	TieEpsilon = 0.01

	postponeDecayBase = 0.9
)

// Priority combines a base relevance score with the review multiplier and
// postponement decay into a single value in [0, MaxPriority]. The decay
// only applies while a postponement is active.
func Priority(base float64, review *store.ReviewRecord, postpone *store.PostponeRecord, now time.Time) float64 {
	decay := 1.0
	if postpone != nil && postpone.PostponeUntil > now.UnixMilli() {
		decay = math.Pow(postponeDecayBase, float64(postpone.PostponeCount))
	}

	p := base * reviewMultiplier(review, now) * decay
	if p > MaxPriority {
		p = MaxPriority
	}
	return p
}

// PriorityScorer computes priorities with record lookups against the
// store. Lookup failures degrade to neutral adjustments.
type PriorityScorer struct {
	db *store.DB
}

// NewPriorityScorer creates a scorer over the given store.
func NewPriorityScorer(db *store.DB) *PriorityScorer {
	return &PriorityScorer{db: db}
}

// Score returns the priority for one bookmark. A missing score record
// falls back to DefaultBaseScore.
func (p *PriorityScorer) Score(bookmarkID string, now time.Time) float64 {
	base := DefaultBaseScore
	if rec, err := p.db.GetScore(bookmarkID); err == nil && rec != nil {
		base = rec.BaseScore
	}

	review, err := p.db.GetReview(bookmarkID)
	if err != nil {
		review = nil
	}
	postpone, err := p.db.GetPostpone(bookmarkID)
	if err != nil {
		postpone = nil
	}

	return Priority(base, review, postpone, now)
}
