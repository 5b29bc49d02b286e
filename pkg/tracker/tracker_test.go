package tracker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// captureServer records every event batch the tracker delivers.
type captureServer struct {
	mu      sync.Mutex
	batches [][]Event
	unlocks []string
}

func (s *captureServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/fingerprint", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Hash string `json:"hash"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(Identity{
			ID:          "01TEST",
			Hash:        req.Hash,
			ServerToken: "token-" + req.Hash,
			Visits:      1,
		})
	})
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Events []Event `json:"events"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.batches = append(s.batches, req.Events)
		unlocks := s.unlocks
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "newlyUnlocked": unlocks})
	})
	return mux
}

func (s *captureServer) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *captureServer) batch(i int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[i]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker(t *testing.T) (*Tracker, *captureServer, *fakeClock) {
	t.Helper()
	capture := &captureServer{}
	server := httptest.NewServer(capture.handler())
	t.Cleanup(server.Close)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tr := New(server.URL, WithClock(clock.Now))

	if _, err := tr.Resolve("abc", nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return tr, capture, clock
}

func TestFingerprintHashDeterministic(t *testing.T) {
	signals := map[string]any{"ua": "Mozilla", "screen": "1920x1080", "tz": -60}
	same := map[string]any{"tz": -60, "screen": "1920x1080", "ua": "Mozilla"}

	if FingerprintHash(signals) != FingerprintHash(same) {
		t.Error("hash differs for identical signals in different map order")
	}
	if FingerprintHash(signals) == FingerprintHash(map[string]any{"ua": "Other"}) {
		t.Error("hash collision for different signals")
	}
	if len(FingerprintHash(signals)) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(FingerprintHash(signals)))
	}
}

func TestStartEmitsPageView(t *testing.T) {
	tr, capture, _ := newTestTracker(t)

	if _, err := tr.Start("/home", "https://search.example"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if capture.batchCount() != 1 {
		t.Fatalf("batches = %d, want 1", capture.batchCount())
	}
	batch := capture.batch(0)
	if len(batch) != 1 || batch[0].Type != "PAGE_VIEW" {
		t.Fatalf("batch = %+v, want single PAGE_VIEW", batch)
	}
	if batch[0].Meta["path"] != "/home" {
		t.Errorf("path = %v, want /home", batch[0].Meta["path"])
	}
	if batch[0].Meta["referrer"] != "https://search.example" {
		t.Errorf("referrer = %v", batch[0].Meta["referrer"])
	}
}

func TestNavigateFlushesPriorWindow(t *testing.T) {
	tr, capture, clock := newTestTracker(t)

	tr.Start("/home", "")
	clock.Advance(30 * time.Second)
	tr.RecordScroll(0.4)

	if _, err := tr.Navigate("/projects"); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	batch := capture.batch(1)
	types := make(map[string]float64)
	for _, ev := range batch {
		if ev.ValueNum != nil {
			types[ev.Type] = *ev.ValueNum
		} else {
			types[ev.Type] = -1
		}
	}

	if types["TIME_SPENT_SEC"] != 30 {
		t.Errorf("TIME_SPENT_SEC = %v, want 30", types["TIME_SPENT_SEC"])
	}
	if types["SCROLL_DEPTH"] != 0.4 {
		t.Errorf("SCROLL_DEPTH = %v, want 0.4", types["SCROLL_DEPTH"])
	}
	if _, ok := types["PAGE_VIEW"]; !ok {
		t.Error("missing PAGE_VIEW for the new path")
	}
}

func TestRecordScrollKeepsRunningMax(t *testing.T) {
	tr, capture, clock := newTestTracker(t)

	tr.Start("/home", "")
	tr.RecordScroll(0.6)
	tr.RecordScroll(0.2)
	tr.RecordScroll(1.7) // clamped
	clock.Advance(time.Second)

	if _, err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	batch := capture.batch(1)
	var depth *float64
	for _, ev := range batch {
		if ev.Type == "SCROLL_DEPTH" {
			depth = ev.ValueNum
		}
	}
	if depth == nil || *depth != 1 {
		t.Errorf("scroll depth = %v, want clamped running max 1", depth)
	}
}

func TestDuplicateFlushIsNoOp(t *testing.T) {
	tr, capture, clock := newTestTracker(t)

	tr.Start("/home", "")
	clock.Advance(10 * time.Second)
	tr.RecordScroll(0.5)

	if _, err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	before := capture.batchCount()

	// A second lifecycle flush for the same window drains nothing.
	tr.FlushFinal()
	if capture.batchCount() != before {
		t.Errorf("duplicate flush sent a batch: %d -> %d", before, capture.batchCount())
	}
}

func TestFlushFinalSwallowsErrors(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tr := New("http://127.0.0.1:1", WithClock(clock.Now)) // nothing listens here
	tr.mu.Lock()
	tr.identity = &Identity{ServerToken: "tok"}
	tr.mu.Unlock()

	tr.Start("/home", "")
	clock.Advance(5 * time.Second)

	// Must not panic or block; errors are discarded.
	tr.FlushFinal()
}

func TestFlushReturnsUnlocks(t *testing.T) {
	tr, capture, clock := newTestTracker(t)
	capture.unlocks = []string{"Visited 5 times."}

	tr.Start("/home", "")
	clock.Advance(3 * time.Second)

	unlocked, err := tr.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(unlocked) != 1 || unlocked[0] != "Visited 5 times." {
		t.Errorf("unlocked = %v", unlocked)
	}
}

func TestEmptyWindowSendsNothing(t *testing.T) {
	tr, capture, _ := newTestTracker(t)

	tr.Start("/home", "")
	before := capture.batchCount()

	// No time elapsed, no scroll observed.
	if _, err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if capture.batchCount() != before {
		t.Error("empty window produced a batch")
	}
}

func TestSendWithoutIdentityFails(t *testing.T) {
	tr := New("http://example.invalid")
	if _, err := tr.Start("/home", ""); err == nil {
		t.Error("expected error without a resolved identity")
	}
}
