package engine

// SessionKey is the kv key under which the live card session is persisted.
// Exactly one session exists at a time; refresh replaces it wholesale.
const SessionKey = "card_session"

// Card is one slot in the session: a snapshot of the candidate at
// selection time. The favicon is resolved lazily and backfilled once
// available.
type Card struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Favicon  []byte  `json:"favicon,omitempty"`
	Priority float64 `json:"priority"`
}

// CardSession is the persisted set of currently displayed cards and their
// flip state.
type CardSession struct {
	CardIDs    []string `json:"card_ids"`
	FlippedIDs []string `json:"flipped_ids"`
	Cards      []Card   `json:"cards"`
	Timestamp  int64    `json:"timestamp"`
}

// IsEmpty reports whether the session has no members.
func (s *CardSession) IsEmpty() bool {
	return s == nil || len(s.CardIDs) == 0
}

// IsFlipped reports whether the card has been flipped.
func (s *CardSession) IsFlipped(id string) bool {
	if s == nil {
		return false
	}
	for _, f := range s.FlippedIDs {
		if f == id {
			return true
		}
	}
	return false
}

// Complete reports whether every member has been flipped. An empty
// session is never complete.
func (s *CardSession) Complete() bool {
	if s.IsEmpty() {
		return false
	}
	for _, id := range s.CardIDs {
		if !s.IsFlipped(id) {
			return false
		}
	}
	return true
}

// cardIDSet returns the member ids as a set.
func (s *CardSession) cardIDSet() map[string]bool {
	if s == nil {
		return nil
	}
	set := make(map[string]bool, len(s.CardIDs))
	for _, id := range s.CardIDs {
		set[id] = true
	}
	return set
}

// flippedSet returns the flipped ids as a set.
func (s *CardSession) flippedSet() map[string]bool {
	if s == nil {
		return nil
	}
	set := make(map[string]bool, len(s.FlippedIDs))
	for _, id := range s.FlippedIDs {
		set[id] = true
	}
	return set
}
