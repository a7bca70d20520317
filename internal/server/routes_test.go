package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/revisitapp/revisit/internal/engine"
)

type sessionResp struct {
	State   string              `json:"state"`
	Session *engine.CardSession `json:"session"`
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, sessionResp) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp sessionResp
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestGetSessionEmpty(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "GET", "/api/session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp.State != "empty" {
		t.Errorf("state = %q, want empty", resp.State)
	}
}

func TestRefreshFillsSession(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/session/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if resp.State != "active" {
		t.Errorf("state = %q, want active", resp.State)
	}
	if len(resp.Session.CardIDs) != engine.DefaultSessionSize {
		t.Errorf("card_ids = %v, want %d members", resp.Session.CardIDs, engine.DefaultSessionSize)
	}
	if len(resp.Session.Cards) != len(resp.Session.CardIDs) {
		t.Errorf("cards = %d, want one per id", len(resp.Session.Cards))
	}
}

func TestRefreshInvalidJSON(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/session/refresh", "not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFlip(t *testing.T) {
	srv := testServer(t)

	_, filled := doJSON(t, srv, "POST", "/api/session/refresh", "")
	id := filled.Session.CardIDs[0]

	w, resp := doJSON(t, srv, "POST", "/api/session/flip", `{"id":"`+id+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if resp.State != "active" {
		t.Errorf("state = %q, want active", resp.State)
	}
	if len(resp.Session.FlippedIDs) != 1 || resp.Session.FlippedIDs[0] != id {
		t.Errorf("flipped_ids = %v, want [%s]", resp.Session.FlippedIDs, id)
	}
}

func TestFlipMissingID(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/session/flip", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFlipAllYieldsFreshSession(t *testing.T) {
	srv := testServer(t)

	_, filled := doJSON(t, srv, "POST", "/api/session/refresh", "")

	var resp sessionResp
	for _, id := range filled.Session.CardIDs {
		_, resp = doJSON(t, srv, "POST", "/api/session/flip", `{"id":"`+id+`"}`)
	}

	// Completing the batch hands back a brand new one.
	if resp.State != "active" {
		t.Errorf("state after completing batch = %q, want active", resp.State)
	}
	if len(resp.Session.FlippedIDs) != 0 {
		t.Errorf("new session flipped_ids = %v, want empty", resp.Session.FlippedIDs)
	}
}

func TestSkipRemovesCard(t *testing.T) {
	srv := testServer(t)

	_, filled := doJSON(t, srv, "POST", "/api/session/refresh", "")
	id := filled.Session.CardIDs[0]

	w, resp := doJSON(t, srv, "POST", "/api/session/skip", `{"id":"`+id+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	for _, got := range resp.Session.CardIDs {
		if got == id {
			t.Errorf("skipped card %q still selected: %v", id, resp.Session.CardIDs)
		}
	}
}

func TestBlockDomain(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/blocklist", `{"kind":"domain","value":"www.D1.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	bl, err := srv.db.GetBlockList()
	if err != nil {
		t.Fatalf("GetBlockList: %v", err)
	}
	if !bl.Domains["d1.com"] {
		t.Errorf("blocklist = %+v, want normalized d1.com", bl)
	}

	// A blocked domain never gets selected.
	_, resp := doJSON(t, srv, "POST", "/api/session/refresh", `{"force":true}`)
	for _, id := range resp.Session.CardIDs {
		if id == "bm1" {
			t.Errorf("blocked bookmark selected: %v", resp.Session.CardIDs)
		}
	}
}

func TestBlockInvalidKind(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/blocklist", `{"kind":"tag","value":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPostpone(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/postpone", strings.NewReader(`{"id":"bm2"}`))
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	until, _ := resp["until"].(float64)
	wantMin := time.Now().Add(6 * 24 * time.Hour).UnixMilli()
	if int64(until) < wantMin {
		t.Errorf("until = %v, want at least a week out", until)
	}

	active, err := srv.db.ActivePostpones(time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("ActivePostpones: %v", err)
	}
	if _, ok := active["bm2"]; !ok {
		t.Errorf("active postpones = %v, want bm2", active)
	}
}

func TestPostponeMissingID(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/postpone", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRescoreAccepted(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/rescore", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}

func TestFaviconMissingParam(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "GET", "/api/favicon", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestStats(t *testing.T) {
	srv := testServer(t)

	_, filled := doJSON(t, srv, "POST", "/api/session/refresh", "")
	doJSON(t, srv, "POST", "/api/session/flip", `{"id":"`+filled.Session.CardIDs[0]+`"}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/stats", nil)
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["session"] != "active" {
		t.Errorf("session = %v, want active", resp["session"])
	}
	if resp["reviewed"].(float64) != 1 {
		t.Errorf("reviewed = %v, want 1", resp["reviewed"])
	}
	if resp["flips"].(float64) != 1 {
		t.Errorf("flips = %v, want 1", resp["flips"])
	}
}

func TestFaviconUnavailable(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "GET", "/api/favicon?url=https://d1.com/", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
