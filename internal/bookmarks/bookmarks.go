// Package bookmarks reads browser bookmark exports and flattens them into
// the records the recommendation engine works with.
package bookmarks

import (
	"context"
	"time"

	"github.com/revisitapp/revisit/internal/urlutil"
)

// Bookmark is one URL-bearing leaf of the bookmark tree. The engine never
// mutates bookmarks; they are sourced read-only from an export file.
type Bookmark struct {
	ID                string
	Title             string
	URL               string
	Domain            string
	AncestorFolderIDs []string // container ids from root to immediate parent
	DateAdded         time.Time
}

// Source yields the full flattened bookmark set.
type Source interface {
	List(ctx context.Context) ([]Bookmark, error)
}

// finish fills derived fields and reports whether the bookmark is usable.
// Entries without a URL are folders or separators; entries whose URL does
// not parse are silently dropped.
func finish(b *Bookmark) bool {
	if b.URL == "" {
		return false
	}
	b.Domain = urlutil.Domain(b.URL)
	return b.Domain != ""
}
