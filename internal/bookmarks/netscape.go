package bookmarks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// NetscapeSource reads a Netscape-format bookmark export (the HTML file
// produced by every major browser's "export bookmarks" feature).
type NetscapeSource struct {
	Path string
}

// List parses the export and flattens it. The format carries no ids, so
// bookmark ids are derived from the URL and folder ids from the folder
// path; both are stable across re-imports of the same export.
func (s *NetscapeSource) List(ctx context.Context) ([]Bookmark, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open bookmarks export: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse bookmarks html: %w", err)
	}

	var out []Bookmark
	root := doc.Find("dl").First()
	walkNetscape(root, nil, nil, &out)
	return out, nil
}

func walkNetscape(dl *goquery.Selection, folderPath []string, ancestors []string, out *[]Bookmark) {
	dl.ChildrenFiltered("dt").Each(func(_ int, dt *goquery.Selection) {
		if h3 := dt.ChildrenFiltered("h3"); h3.Length() > 0 {
			name := strings.TrimSpace(h3.First().Text())
			path := append(append([]string(nil), folderPath...), name)
			chain := append(append([]string(nil), ancestors...), deriveID("folder", strings.Join(path, "/")))
			dt.ChildrenFiltered("dl").Each(func(_ int, sub *goquery.Selection) {
				walkNetscape(sub, path, chain, out)
			})
			return
		}

		a := dt.ChildrenFiltered("a").First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		b := Bookmark{
			ID:                deriveID("bookmark", href),
			Title:             strings.TrimSpace(a.Text()),
			URL:               href,
			AncestorFolderIDs: append([]string(nil), ancestors...),
			DateAdded:         netscapeTime(a.AttrOr("add_date", "")),
		}
		if finish(&b) {
			*out = append(*out, b)
		}
	})
}

// deriveID generates a stable id from a namespace and a seed string.
func deriveID(kind, seed string) string {
	sum := sha256.Sum256([]byte(kind + ":" + seed))
	return hex.EncodeToString(sum[:6])
}

// netscapeTime parses an ADD_DATE attribute (unix seconds).
func netscapeTime(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
