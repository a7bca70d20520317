package engine

import (
	"testing"
	"time"

	"github.com/revisitapp/revisit/internal/bookmarks"
	"github.com/revisitapp/revisit/internal/store"
)

func bm(id, domain string, folders ...string) bookmarks.Bookmark {
	return bookmarks.Bookmark{
		ID:                id,
		Title:             id,
		URL:               "https://" + domain + "/",
		Domain:            domain,
		AncestorFolderIDs: folders,
	}
}

func ids(bms []bookmarks.Bookmark) []string {
	out := make([]string, len(bms))
	for i, b := range bms {
		out[i] = b.ID
	}
	return out
}

func TestEligibleBasicExclusions(t *testing.T) {
	now := time.Now()
	pool := []bookmarks.Bookmark{
		bm("a", "a.com"),
		bm("b", "b.com"),
		bm("c", "c.com"),
		bm("d", "d.com"),
		{ID: "nourl", Title: "folder-ish"},
	}

	got := Eligible(pool, FilterInput{
		Flipped: map[string]bool{"a": true},
		Skipped: map[string]bool{"b": true},
		Now:     now,
	})
	want := map[string]bool{"c": true, "d": true}
	if len(got) != 2 {
		t.Fatalf("eligible = %v, want c and d", ids(got))
	}
	for _, b := range got {
		if !want[b.ID] {
			t.Errorf("unexpected eligible id %q", b.ID)
		}
	}
}

func TestEligibleBlockedDomainNormalization(t *testing.T) {
	db := testDB(t)

	// Blocking "www.example.com" stores the normalized form, which must
	// exclude a bookmark whose computed domain is "example.com".
	if err := db.Block(store.BlockKindDomain, "www.example.com"); err != nil {
		t.Fatal(err)
	}
	blocked, err := db.GetBlockList()
	if err != nil {
		t.Fatal(err)
	}

	pool := []bookmarks.Bookmark{bm("a", "example.com"), bm("b", "other.com")}
	got := Eligible(pool, FilterInput{Blocked: blocked, Now: time.Now()})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("eligible = %v, want only b", ids(got))
	}
}

func TestEligibleBlockedAncestorFolder(t *testing.T) {
	blocked := &store.BlockList{
		BookmarkIDs: map[string]bool{},
		FolderIDs:   map[string]bool{"root-folder": true},
		Domains:     map[string]bool{},
	}

	pool := []bookmarks.Bookmark{
		bm("deep", "a.com", "root-folder", "sub"),
		bm("free", "b.com", "other"),
	}
	got := Eligible(pool, FilterInput{Blocked: blocked, Now: time.Now()})
	if len(got) != 1 || got[0].ID != "free" {
		t.Errorf("eligible = %v, want only free", ids(got))
	}
}

func TestEligibleActivePostponement(t *testing.T) {
	now := time.Now()
	nowMs := now.UnixMilli()

	postponed := map[string]store.PostponeRecord{
		"deferred": {BookmarkID: "deferred", PostponeUntil: nowMs + dayMillis},
		"expired":  {BookmarkID: "expired", PostponeUntil: nowMs - dayMillis},
	}

	pool := []bookmarks.Bookmark{bm("deferred", "a.com"), bm("expired", "b.com")}
	got := Eligible(pool, FilterInput{Postponed: postponed, Now: now})
	if len(got) != 1 || got[0].ID != "expired" {
		t.Errorf("eligible = %v, want only expired", ids(got))
	}
}

func TestEligibleCurrentSessionExclusion(t *testing.T) {
	pool := []bookmarks.Bookmark{bm("a", "a.com"), bm("b", "b.com")}

	got := Eligible(pool, FilterInput{
		Current: map[string]bool{"a": true},
		Now:     time.Now(),
	})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("eligible = %v, want only b", ids(got))
	}

	// Nil Current disables the check entirely.
	got = Eligible(pool, FilterInput{Now: time.Now()})
	if len(got) != 2 {
		t.Errorf("eligible without exclusion = %v, want both", ids(got))
	}
}
