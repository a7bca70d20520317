package favicon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// testResolver builds a Resolver whose source chain hits the given handlers
// in order, each behind its own test server.
func testResolver(t *testing.T, handlers ...http.HandlerFunc) *Resolver {
	t.Helper()
	r := NewResolver()
	r.sources = nil
	for _, h := range handlers {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		url := srv.URL
		r.sources = append(r.sources, Source{
			Name: "test",
			URL:  func(host string) string { return url + "/" + host },
		})
	}
	return r
}

func TestResolveFirstSourceWins(t *testing.T) {
	var secondHit atomic.Bool
	r := testResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte("ICON1"))
		},
		func(w http.ResponseWriter, req *http.Request) {
			secondHit.Store(true)
			w.Write([]byte("ICON2"))
		},
	)

	data, ok := r.Resolve(context.Background(), "example.com")
	if !ok || string(data) != "ICON1" {
		t.Errorf("Resolve = %q, %v", data, ok)
	}
	if secondHit.Load() {
		t.Error("second source should not be consulted when the first succeeds")
	}
}

func TestResolveFallsThroughEmptyAndErrors(t *testing.T) {
	r := testResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			// 200 with empty payload counts as a miss
			w.WriteHeader(http.StatusOK)
		},
		func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		},
		func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte("FALLBACK"))
		},
	)

	data, ok := r.Resolve(context.Background(), "example.com")
	if !ok || string(data) != "FALLBACK" {
		t.Errorf("Resolve = %q, %v", data, ok)
	}
}

func TestResolveAllFailIsUnavailable(t *testing.T) {
	r := testResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		},
		func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		},
	)

	if _, ok := r.Resolve(context.Background(), "example.com"); ok {
		t.Error("expected unavailable when every source fails")
	}
}

func TestResolveEmptyHost(t *testing.T) {
	r := NewResolver()
	if _, ok := r.Resolve(context.Background(), ""); ok {
		t.Error("empty host must miss without any network call")
	}
}

func TestDefaultSourcesOrder(t *testing.T) {
	sources := DefaultSources()
	if len(sources) != 3 {
		t.Fatalf("got %d sources, want 3", len(sources))
	}
	want := []string{"google-s2", "duckduckgo", "direct"}
	for i, s := range sources {
		if s.Name != want[i] {
			t.Errorf("source[%d] = %q, want %q", i, s.Name, want[i])
		}
	}
	if got := sources[1].URL("example.com"); got != "https://icons.duckduckgo.com/ip3/example.com.ico" {
		t.Errorf("duckduckgo url = %q", got)
	}
}
