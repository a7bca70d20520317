package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revisitapp/revisit/internal/bookmarks"
	"github.com/revisitapp/revisit/internal/engine"
	"github.com/revisitapp/revisit/internal/store"
)

type staticSource struct {
	bms []bookmarks.Bookmark
}

func (s staticSource) List(ctx context.Context) ([]bookmarks.Bookmark, error) {
	return s.bms, nil
}

// noIcons never resolves, keeping tests off the network.
type noIcons struct{}

func (noIcons) Resolve(ctx context.Context, host string) ([]byte, bool) {
	return nil, false
}

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var bms []bookmarks.Bookmark
	for i := 1; i <= 5; i++ {
		bms = append(bms, bookmarks.Bookmark{
			ID:     fmt.Sprintf("bm%d", i),
			Title:  fmt.Sprintf("Bookmark %d", i),
			URL:    fmt.Sprintf("https://d%d.com/", i),
			Domain: fmt.Sprintf("d%d.com", i),
		})
	}

	eng := engine.New(db, staticSource{bms: bms})
	eng.SetResolver(noIcons{})
	t.Cleanup(eng.Stop)

	return New(db, eng, "test-version")
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}
