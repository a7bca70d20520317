package bookmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ChromeSource reads a Chromium "Bookmarks" JSON file.
type ChromeSource struct {
	Path string
}

type chromeNode struct {
	Type      string       `json:"type"`
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	URL       string       `json:"url"`
	DateAdded string       `json:"date_added"`
	Children  []chromeNode `json:"children"`
}

type chromeFile struct {
	Roots map[string]chromeNode `json:"roots"`
}

// List parses the file and flattens every url node, computing the ancestor
// folder chain from root to parent.
func (s *ChromeSource) List(ctx context.Context) ([]Bookmark, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read bookmarks file: %w", err)
	}

	var file chromeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse bookmarks json: %w", err)
	}

	var out []Bookmark
	for _, rootName := range []string{"bookmark_bar", "other", "synced"} {
		root, ok := file.Roots[rootName]
		if !ok {
			continue
		}
		walkChrome(root, nil, &out)
	}
	return out, nil
}

func walkChrome(node chromeNode, ancestors []string, out *[]Bookmark) {
	switch node.Type {
	case "folder":
		chain := append(append([]string(nil), ancestors...), node.ID)
		for _, child := range node.Children {
			walkChrome(child, chain, out)
		}
	case "url":
		b := Bookmark{
			ID:                node.ID,
			Title:             node.Name,
			URL:               node.URL,
			AncestorFolderIDs: append([]string(nil), ancestors...),
			DateAdded:         chromeTime(node.DateAdded),
		}
		if b.ID == "" {
			return
		}
		if finish(&b) {
			*out = append(*out, b)
		}
	}
}

// chromeTime converts Chrome's timestamp (microseconds since 1601-01-01)
// to a time.Time. Zero or unparseable values yield the zero time.
func chromeTime(raw string) time.Time {
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || micros == 0 {
		return time.Time{}
	}
	const epochDelta = 11644473600 // seconds between 1601-01-01 and 1970-01-01
	secs := micros/1e6 - epochDelta
	return time.Unix(secs, (micros%1e6)*1000)
}
