package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/revisitapp/revisit/internal/bookmarks"
	"github.com/revisitapp/revisit/internal/cache"
	"github.com/revisitapp/revisit/internal/favicon"
	"github.com/revisitapp/revisit/internal/scoring"
	"github.com/revisitapp/revisit/internal/store"
	"github.com/revisitapp/revisit/internal/urlutil"
)

const (
	// DefaultSessionSize is the number of cards selected per session.
	DefaultSessionSize = 3

	// prefetchExtra favicons beyond the selection are warmed in the
	// background for candidates just below the cutoff.
	prefetchExtra = 6

	// echoWindow suppresses change notifications for our own session
	// writes: a notification for SessionKey arriving this soon after a
	// local write is an echo, not an external event.
	echoWindow = 500 * time.Millisecond

	faviconCacheKey  = "favicon_cache"
	faviconTTL       = 120 * 24 * time.Hour
	faviconCapacity  = 200
	prefetchDeadline = 30 * time.Second
)

// IconResolver fetches a favicon for a normalized host.
type IconResolver interface {
	Resolve(ctx context.Context, host string) ([]byte, bool)
}

// Engine orchestrates card selection, persistence, refresh policy, and
// completion detection. One Engine owns the live session's lifecycle.
type Engine struct {
	DB     *store.DB
	Source bookmarks.Source

	sessionSize int
	icons       *cache.Cache[[]byte]
	resolver    IconResolver
	reviews     *ReviewScheduler

	mu        sync.Mutex // guards busy, skipped, lastWrite
	busy      bool
	skipped   map[string]bool
	lastWrite time.Time

	wmu sync.Mutex // serializes session load-modify-write sequences

	stopCh chan struct{}
	now    func() time.Time
}

// Options tunes an Engine. Zero values fall back to the defaults.
type Options struct {
	SessionSize  int
	IconCapacity int
	IconTTL      time.Duration
}

// New creates an Engine over the given store and bookmark source with
// default options.
func New(db *store.DB, source bookmarks.Source) *Engine {
	return NewWithOptions(db, source, Options{})
}

// NewWithOptions creates an Engine with the given tunables. The favicon
// cache is loaded from the store, dropping entries past TTL.
func NewWithOptions(db *store.DB, source bookmarks.Source, opts Options) *Engine {
	if opts.SessionSize <= 0 {
		opts.SessionSize = DefaultSessionSize
	}
	if opts.IconCapacity <= 0 {
		opts.IconCapacity = faviconCapacity
	}
	if opts.IconTTL <= 0 {
		opts.IconTTL = faviconTTL
	}

	e := &Engine{
		DB:          db,
		Source:      source,
		sessionSize: opts.SessionSize,
		resolver:    favicon.NewResolver(),
		reviews:     NewReviewScheduler(db),
		skipped:     make(map[string]bool),
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
	e.icons = cache.New[[]byte](cache.Options{
		Capacity: opts.IconCapacity,
		TTL:      opts.IconTTL,
		Load: func() ([]byte, bool, error) {
			v, ok, err := db.GetKV(faviconCacheKey)
			return []byte(v), ok, err
		},
		Save: func(blob []byte) error {
			return db.SetKV(faviconCacheKey, string(blob))
		},
	})
	return e
}

// SetResolver replaces the favicon resolver.
func (e *Engine) SetResolver(r IconResolver) {
	e.resolver = r
}

// Reviews exposes the review scheduler.
func (e *Engine) Reviews() *ReviewScheduler {
	return e.reviews
}

// Start watches store change notifications so that session writes from
// other contexts (another open view, for instance) are observed.
func (e *Engine) Start() {
	ch := e.DB.Subscribe()
	go func() {
		for {
			select {
			case c := <-ch:
				e.handleChange(c)
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the watcher and flushes any pending cache state. The
// transient skipped set dies with the engine.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.icons.Close()
}

// Session returns the persisted live session, or nil when none exists.
// Transient store failures degrade to nil rather than erroring.
func (e *Engine) Session() *CardSession {
	return e.loadSession()
}

func (e *Engine) loadSession() *CardSession {
	raw, ok, err := e.DB.GetKV(SessionKey)
	if err != nil {
		log.Printf("engine: load session: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var s CardSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		log.Printf("engine: decode session: %v", err)
		return nil
	}
	return &s
}

func (e *Engine) writeSession(s *CardSession) {
	blob, err := json.Marshal(s)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.lastWrite = e.now()
	e.mu.Unlock()
	if err := e.DB.SetKV(SessionKey, string(blob)); err != nil {
		// Best effort. The caller already holds the in-memory session.
		log.Printf("engine: persist session: %v", err)
	}
}

// Refresh drives the session state machine. Without force, an Empty or
// Complete session gets a fresh batch; an Active one is only re-rendered
// in place, preserving the chosen set. With force, the non-flipped
// members are discarded and reselected. Only one refresh runs at a time:
// a request arriving while one is in flight is dropped unless forced.
func (e *Engine) Refresh(ctx context.Context, force bool) *CardSession {
	e.mu.Lock()
	if e.busy && !force {
		e.mu.Unlock()
		return e.loadSession()
	}
	e.busy = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}()

	session := e.loadSession()
	if !force && !session.IsEmpty() && !session.Complete() {
		return e.lazyRender(ctx, session)
	}
	return e.selectBatch(ctx, session)
}

// Flip marks a card as consumed. Flipping an already-flipped or unknown
// id is a no-op. A flip also records a review, feeding the spaced-review
// schedule. Completing the session triggers an immediate forced refresh.
func (e *Engine) Flip(ctx context.Context, id string) *CardSession {
	e.wmu.Lock()
	session := e.loadSession()
	if session.IsEmpty() || !session.cardIDSet()[id] {
		e.wmu.Unlock()
		return session
	}
	if !session.IsFlipped(id) {
		session.FlippedIDs = append(session.FlippedIDs, id)
		if err := e.reviews.RecordReview(id); err != nil {
			log.Printf("engine: record review for %s: %v", id, err)
		}
		e.writeSession(session)
	}
	complete := session.Complete()
	e.wmu.Unlock()

	if complete {
		return e.Refresh(ctx, true)
	}
	return session
}

// Skip excludes a bookmark from selection for the lifetime of this
// engine instance. Skips are never persisted.
func (e *Engine) Skip(id string) {
	if id == "" {
		return
	}
	e.mu.Lock()
	e.skipped[id] = true
	e.mu.Unlock()
}

func (e *Engine) skippedSnapshot() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(e.skipped))
	for id := range e.skipped {
		out[id] = true
	}
	return out
}

// Rescore re-runs the base scoring job over the full bookmark set.
func (e *Engine) Rescore(ctx context.Context) (int, error) {
	bms, err := e.Source.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bookmarks: %w", err)
	}
	return scoring.NewJob(e.DB).RecomputeAll(ctx, bms)
}

// ResolveFavicon returns the favicon for a bookmark URL, consulting the
// cache first and populating it from the external sources on a miss.
// Malformed URLs are not cacheable and always miss.
func (e *Engine) ResolveFavicon(ctx context.Context, rawURL string) ([]byte, bool) {
	host := urlutil.Domain(rawURL)
	return e.icons.GetOrPopulate(ctx, host, func(ctx context.Context) ([]byte, bool, error) {
		data, ok := e.resolver.Resolve(ctx, host)
		return data, ok, nil
	})
}

// handleChange reacts to session writes from other contexts. A write
// observed within echoWindow of our own is our own echo and is ignored;
// an external write that completes the session triggers a refresh.
func (e *Engine) handleChange(c store.Change) {
	if c.Key != SessionKey {
		return
	}
	e.mu.Lock()
	last := e.lastWrite
	e.mu.Unlock()
	if e.now().Sub(last) < echoWindow {
		return
	}

	var s CardSession
	if err := json.Unmarshal([]byte(c.New), &s); err != nil {
		return
	}
	if s.Complete() {
		e.Refresh(context.Background(), true)
	}
}

type candidate struct {
	bm       bookmarks.Bookmark
	priority float64
}

// selectBatch picks a fresh top-N by priority and replaces the session
// wholesale. Every store read degrades to an empty default on failure;
// a failed bookmark read keeps the existing session instead.
func (e *Engine) selectBatch(ctx context.Context, current *CardSession) *CardSession {
	now := e.now()

	bms, err := e.Source.List(ctx)
	if err != nil {
		log.Printf("engine: list bookmarks: %v", err)
		return current
	}

	blocked, err := e.DB.GetBlockList()
	if err != nil {
		log.Printf("engine: load blocklist: %v", err)
		blocked = nil
	}
	postponed, err := e.DB.ActivePostpones(now.UnixMilli())
	if err != nil {
		postponed = nil
	}
	scores, err := e.DB.AllScores()
	if err != nil {
		scores = nil
	}
	reviews, err := e.DB.AllReviews()
	if err != nil {
		reviews = nil
	}

	in := FilterInput{
		Flipped:   current.flippedSet(),
		Skipped:   e.skippedSnapshot(),
		Blocked:   blocked,
		Postponed: postponed,
		Current:   current.cardIDSet(),
		Now:       now,
	}
	eligible := Eligible(bms, in)
	if len(eligible) < e.sessionSize {
		// Too few fresh candidates: allow re-offering what is already
		// showing rather than leaving slots empty.
		in.Current = nil
		eligible = Eligible(bms, in)
	}

	ranked := rank(eligible, scores, reviews, postponed, now)

	n := e.sessionSize
	if n > len(ranked) {
		n = len(ranked)
	}

	ids := make([]string, 0, n)
	cards := make([]Card, 0, n)
	for _, cand := range ranked[:n] {
		icon, _ := e.icons.Get(cand.bm.Domain)
		ids = append(ids, cand.bm.ID)
		cards = append(cards, Card{
			ID:       cand.bm.ID,
			Title:    cand.bm.Title,
			URL:      cand.bm.URL,
			Favicon:  icon,
			Priority: cand.priority,
		})
	}

	session := &CardSession{
		CardIDs:    ids,
		FlippedIDs: []string{},
		Cards:      cards,
		Timestamp:  now.UnixMilli(),
	}
	e.writeSession(session)

	limit := n + prefetchExtra
	if limit > len(ranked) {
		limit = len(ranked)
	}
	hosts := make([]string, 0, limit)
	for _, cand := range ranked[:limit] {
		hosts = append(hosts, cand.bm.Domain)
	}
	go e.prefetch(hosts, ids)

	return session
}

// lazyRender re-renders an active session without reselecting: titles,
// priorities, and missing favicons are backfilled, the chosen set is
// preserved.
func (e *Engine) lazyRender(ctx context.Context, session *CardSession) *CardSession {
	now := e.now()

	byID := make(map[string]bookmarks.Bookmark)
	if bms, err := e.Source.List(ctx); err == nil {
		for _, b := range bms {
			byID[b.ID] = b
		}
	} else {
		log.Printf("engine: list bookmarks: %v", err)
	}

	scorer := NewPriorityScorer(e.DB)
	changed := false
	for i := range session.Cards {
		card := &session.Cards[i]
		// A member no longer present in the source keeps its stale
		// snapshot; the presentation layer renders it as a placeholder.
		if b, ok := byID[card.ID]; ok {
			if card.Title != b.Title {
				card.Title = b.Title
				changed = true
			}
			if card.URL != b.URL {
				card.URL = b.URL
				changed = true
			}
		}
		if p := scorer.Score(card.ID, now); p != card.Priority {
			card.Priority = p
			changed = true
		}
		if len(card.Favicon) == 0 {
			if icon, ok := e.icons.Get(urlutil.Domain(card.URL)); ok {
				card.Favicon = icon
				changed = true
			}
		}
	}

	if changed {
		e.wmu.Lock()
		e.writeSession(session)
		e.wmu.Unlock()
	}
	return session
}

// prefetch warms the favicon cache for the given hosts, then backfills
// any still-missing icons into the selected cards' snapshots.
func (e *Engine) prefetch(hosts []string, selected []string) {
	ctx, cancel := context.WithTimeout(context.Background(), prefetchDeadline)
	defer cancel()

	for _, host := range hosts {
		host := host
		e.icons.GetOrPopulate(ctx, host, func(ctx context.Context) ([]byte, bool, error) {
			data, ok := e.resolver.Resolve(ctx, host)
			return data, ok, nil
		})
	}
	e.backfillIcons(selected)
}

func (e *Engine) backfillIcons(ids []string) {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	session := e.loadSession()
	if session.IsEmpty() {
		return
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	changed := false
	for i := range session.Cards {
		card := &session.Cards[i]
		if len(card.Favicon) > 0 || !want[card.ID] {
			continue
		}
		if icon, ok := e.icons.Get(urlutil.Domain(card.URL)); ok {
			card.Favicon = icon
			changed = true
		}
	}
	if changed {
		e.writeSession(session)
	}
}

// rank orders candidates by priority descending. Candidates whose
// priorities differ by less than TieEpsilon are tied and ordered
// randomly: the pool is shuffled first, then stably sorted with tied
// pairs left in shuffled order.
func rank(bms []bookmarks.Bookmark, scores map[string]float64, reviews map[string]store.ReviewRecord, postponed map[string]store.PostponeRecord, now time.Time) []candidate {
	out := make([]candidate, 0, len(bms))
	for _, b := range bms {
		base, ok := scores[b.ID]
		if !ok {
			base = DefaultBaseScore
		}
		var rev *store.ReviewRecord
		if r, ok := reviews[b.ID]; ok {
			rev = &r
		}
		var post *store.PostponeRecord
		if p, ok := postponed[b.ID]; ok {
			post = &p
		}
		out = append(out, candidate{bm: b, priority: Priority(base, rev, post, now)})
	}

	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	sort.SliceStable(out, func(i, j int) bool {
		if math.Abs(out[i].priority-out[j].priority) < TieEpsilon {
			return false
		}
		return out[i].priority > out[j].priority
	})
	return out
}
