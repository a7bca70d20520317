package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/revisitapp/revisit/internal/engine"
	"github.com/revisitapp/revisit/internal/store"
)

const defaultPostponeDays = 7

func sessionState(s *engine.CardSession) string {
	switch {
	case s.IsEmpty():
		return "empty"
	case s.Complete():
		return "complete"
	default:
		return "active"
	}
}

func writeSessionJSON(w http.ResponseWriter, s *engine.CardSession) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"state":   sessionState(s),
		"session": s,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeSessionJSON(w, s.engine.Session())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	session := s.engine.Refresh(r.Context(), req.Force)
	writeSessionJSON(w, session)
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, `{"error":"id required"}`, http.StatusBadRequest)
		return
	}

	session := s.engine.Flip(r.Context(), req.ID)
	writeSessionJSON(w, session)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, `{"error":"id required"}`, http.StatusBadRequest)
		return
	}

	s.engine.Skip(req.ID)

	// The skipped card leaves the pool on the next selection; reselect
	// now so the response already reflects it.
	session := s.engine.Refresh(r.Context(), true)
	writeSessionJSON(w, session)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	switch req.Kind {
	case store.BlockKindBookmark, store.BlockKindFolder, store.BlockKindDomain:
	default:
		http.Error(w, `{"error":"kind must be bookmark, folder, or domain"}`, http.StatusBadRequest)
		return
	}

	if err := s.db.Block(req.Kind, req.Value); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "blocked"})
}

func (s *Server) handlePostpone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Days int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, `{"error":"id required"}`, http.StatusBadRequest)
		return
	}
	days := req.Days
	if days <= 0 {
		days = defaultPostponeDays
	}

	until := time.Now().Add(time.Duration(days) * 24 * time.Hour).UnixMilli()
	if _, err := s.db.Postpone(req.ID, until); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "postponed",
		"until":  until,
	})
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	// Rescoring walks the whole bookmark set; run it async and return 202.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if n, err := s.engine.Rescore(ctx); err != nil {
			log.Printf("rescore failed: %v", err)
		} else {
			log.Printf("rescored %d bookmarks", n)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "rescoring"})
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, `{"error":"url parameter required"}`, http.StatusBadRequest)
		return
	}

	icon, ok := s.engine.ResolveFavicon(r.Context(), rawURL)
	if !ok {
		http.Error(w, `{"error":"favicon unavailable"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(icon))
	w.Header().Set("Cache-Control", "max-age=86400")
	w.Write(icon)
}
