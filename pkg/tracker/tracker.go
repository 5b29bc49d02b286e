// Package tracker is the client-side session instrumentation SDK. It mirrors
// the browser contract: resolve an identity once, emit a PAGE_VIEW per page,
// accumulate time-on-page and maximum scroll depth, and flush the window as
// an event batch on navigation or teardown.
//
// Flush accounting uses a flushed-through watermark: accumulators are zeroed
// the moment a batch is enqueued, so a duplicate lifecycle flush for the same
// window sends nothing instead of double-counting.
package tracker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Event mirrors the ingestion wire shape.
type Event struct {
	Type     string         `json:"type"`
	ValueNum *float64       `json:"valueNum,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Identity is the resolved visitor identity returned by the backend.
type Identity struct {
	ID          string `json:"id"`
	Hash        string `json:"hash"`
	ServerToken string `json:"serverToken"`
	Visits      int    `json:"visits"`
}

// Tracker batches behavioral events for one browsing session and delivers
// them to the backend. All methods are safe for concurrent use.
type Tracker struct {
	baseURL string
	client  *http.Client
	clock   func() time.Time

	mu             sync.Mutex
	identity       *Identity
	currentPath    string
	sessionStart   time.Time
	maxScrollDepth float64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHTTPClient overrides the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tracker) { t.client = c }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// New creates a tracker pointed at the backend's base URL (no trailing
// /api/v1).
func New(baseURL string, opts ...Option) *Tracker {
	t := &Tracker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FingerprintHash digests a map of collected device/browser signals into the
// stable hash submitted to the backend. Serialization is deterministic: keys
// are sorted before hashing so the same signals always produce the same hash.
func FingerprintHash(signals map[string]any) string {
	keys := make([]string, 0, len(signals))
	for k := range signals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		v, _ := json.Marshal(signals[k])
		fmt.Fprintf(&buf, "%s=%s;", k, v)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Resolve submits the fingerprint hash and retains the returned server token
// for subsequent batches. Call once per page load.
func (t *Tracker) Resolve(hash string, raw map[string]any) (*Identity, error) {
	body, err := json.Marshal(map[string]any{"hash": hash, "raw": raw})
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Post(t.baseURL+"/api/v1/fingerprint", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fingerprint resolution failed: status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.identity = &identity
	t.mu.Unlock()

	return &identity, nil
}

// Start begins the first page's window and emits its PAGE_VIEW immediately.
// Requires a resolved identity.
func (t *Tracker) Start(path, referrer string) ([]string, error) {
	t.mu.Lock()
	t.currentPath = path
	t.sessionStart = t.clock()
	t.maxScrollDepth = 0
	t.mu.Unlock()

	return t.send([]Event{pageView(path, referrer)}, true)
}

// Navigate flushes the prior page's accumulated window, resets the
// accumulators, and emits a PAGE_VIEW for the new path.
func (t *Tracker) Navigate(path string) ([]string, error) {
	t.mu.Lock()
	batch := t.drainWindowLocked()
	t.currentPath = path
	t.sessionStart = t.clock()
	t.mu.Unlock()

	batch = append(batch, pageView(path, ""))
	return t.send(batch, true)
}

// RecordScroll observes a scroll depth in [0, 1] and keeps the running
// maximum for the current page window.
func (t *Tracker) RecordScroll(depth float64) {
	if depth < 0 {
		return
	}
	if depth > 1 {
		depth = 1
	}
	t.mu.Lock()
	if depth > t.maxScrollDepth {
		t.maxScrollDepth = depth
	}
	t.mu.Unlock()
}

// RecordEvent queues a one-off event (CONTACT_SUBMIT, SHARE) and sends it
// immediately along with nothing else.
func (t *Tracker) RecordEvent(eventType string, meta map[string]any) ([]string, error) {
	return t.send([]Event{{Type: eventType, Meta: meta}}, true)
}

// Flush sends the current window (time spent plus scroll depth if any was
// observed) and reads the response so newly unlocked achievements reach the
// caller. A window already flushed through is a no-op.
func (t *Tracker) Flush() ([]string, error) {
	t.mu.Lock()
	batch := t.drainWindowLocked()
	t.mu.Unlock()

	if len(batch) == 0 {
		return nil, nil
	}
	return t.send(batch, true)
}

// FlushFinal is the teardown flush: fire-and-forget, no response read, all
// errors swallowed. Safe to call after Flush; a drained window sends nothing.
func (t *Tracker) FlushFinal() {
	t.mu.Lock()
	batch := t.drainWindowLocked()
	t.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	t.send(batch, false)
}

// drainWindowLocked builds the flush batch for the current window and zeroes
// the accumulators. Caller holds t.mu.
func (t *Tracker) drainWindowLocked() []Event {
	if t.sessionStart.IsZero() {
		return nil
	}

	elapsed := t.clock().Sub(t.sessionStart).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	var batch []Event
	if elapsed > 0 {
		batch = append(batch, numEvent("TIME_SPENT_SEC", elapsed, t.currentPath))
	}
	if t.maxScrollDepth > 0 {
		batch = append(batch, numEvent("SCROLL_DEPTH", t.maxScrollDepth, t.currentPath))
	}

	// Watermark: reset at enqueue time so a racing lifecycle flush drains
	// an empty window instead of the same one again.
	t.sessionStart = t.clock()
	t.maxScrollDepth = 0

	return batch
}

func (t *Tracker) send(events []Event, readResponse bool) ([]string, error) {
	if len(events) == 0 {
		return nil, nil
	}

	t.mu.Lock()
	identity := t.identity
	t.mu.Unlock()
	if identity == nil {
		return nil, fmt.Errorf("identity not resolved")
	}

	body, err := json.Marshal(map[string]any{
		"serverToken": identity.ServerToken,
		"events":      events,
	})
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Post(t.baseURL+"/api/v1/events", "application/json", bytes.NewReader(body))
	if err != nil {
		if readResponse {
			return nil, err
		}
		return nil, nil
	}
	defer resp.Body.Close()

	if !readResponse {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event delivery failed: status %d", resp.StatusCode)
	}

	var result struct {
		NewlyUnlocked []string `json:"newlyUnlocked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.NewlyUnlocked, nil
}

func pageView(path, referrer string) Event {
	meta := map[string]any{"path": path}
	if referrer != "" {
		meta["referrer"] = referrer
	}
	return Event{Type: "PAGE_VIEW", Meta: meta}
}

func numEvent(eventType string, value float64, path string) Event {
	return Event{
		Type:     eventType,
		ValueNum: &value,
		Meta:     map[string]any{"path": path},
	}
}
