package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleStats reports aggregate review activity: how many bookmarks have
// been reviewed, how many are due, and the current exclusion surface.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UnixMilli()

	reviewed := 0
	due := 0
	totalFlips := 0
	if reviews, err := s.db.AllReviews(); err == nil {
		reviewed = len(reviews)
		for _, rec := range reviews {
			totalFlips += rec.ReviewCount
			if rec.NextReview <= now {
				due++
			}
		}
	}

	postponed := 0
	if active, err := s.db.ActivePostpones(now); err == nil {
		postponed = len(active)
	}

	blocked := 0
	if bl, err := s.db.GetBlockList(); err == nil && bl != nil {
		blocked = len(bl.BookmarkIDs) + len(bl.FolderIDs) + len(bl.Domains)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session":   sessionState(s.engine.Session()),
		"reviewed":  reviewed,
		"due":       due,
		"flips":     totalFlips,
		"postponed": postponed,
		"blocked":   blocked,
	})
}
