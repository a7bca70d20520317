package engine

import (
	"time"

	"github.com/revisitapp/revisit/internal/bookmarks"
	"github.com/revisitapp/revisit/internal/store"
)

// FilterInput carries every exclusion applied when building the eligible
// candidate pool. Nil maps disable the corresponding check.
type FilterInput struct {
	Flipped   map[string]bool
	Skipped   map[string]bool
	Blocked   *store.BlockList
	Postponed map[string]store.PostponeRecord // active postponements only
	Current   map[string]bool                 // ids already showing; nil disables the check
	Now       time.Time
}

// Eligible returns the bookmarks that survive every exclusion: they must
// have a usable URL, not be flipped, skipped, or blocked (by id, ancestor
// folder, or normalized domain), not be actively postponed, and not
// already be showing in the current session.
func Eligible(bms []bookmarks.Bookmark, in FilterInput) []bookmarks.Bookmark {
	var out []bookmarks.Bookmark
	for _, b := range bms {
		if eligible(b, in) {
			out = append(out, b)
		}
	}
	return out
}

func eligible(b bookmarks.Bookmark, in FilterInput) bool {
	if b.URL == "" || b.Domain == "" || b.ID == "" {
		return false
	}
	if in.Flipped[b.ID] || in.Skipped[b.ID] {
		return false
	}
	if in.Current != nil && in.Current[b.ID] {
		return false
	}
	if in.Blocked != nil {
		if in.Blocked.BookmarkIDs[b.ID] {
			return false
		}
		for _, folder := range b.AncestorFolderIDs {
			if in.Blocked.FolderIDs[folder] {
				return false
			}
		}
		if in.Blocked.Domains[b.Domain] {
			return false
		}
	}
	if rec, ok := in.Postponed[b.ID]; ok && rec.PostponeUntil > in.Now.UnixMilli() {
		return false
	}
	return true
}
