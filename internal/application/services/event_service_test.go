package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/hintermann/visitforge/internal/domain/visitor"
)

func resolveVisitor(t *testing.T, f *fixture, hash string) *visitor.Fingerprint {
	t.Helper()
	identity, err := f.identity.Resolve(hash, nil, nil, nil)
	if err != nil {
		t.Fatalf("resolving %q: %v", hash, err)
	}
	return identity
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	_, err := f.events.Ingest("", identity.ServerToken, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestIngestRejectsUnknownEventType(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	_, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{{Type: "CLICKED"}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestIngestUnresolvedIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.events.Ingest("", "bogus-token", []visitor.Event{{Type: visitor.EventPageView}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIngestFoldsBatchIntoStats(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	batch := []visitor.Event{
		{Type: visitor.EventPageView},
		{Type: visitor.EventPageView},
		{Type: visitor.EventTimeSpentSec, ValueNum: floatPtr(42)},
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.3)},
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.6)},
		{Type: visitor.EventContactSub},
		{Type: visitor.EventShare},
	}
	result, err := f.events.Ingest("", identity.ServerToken, batch)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Accepted != len(batch) {
		t.Errorf("accepted = %d, want %d", result.Accepted, len(batch))
	}

	stats, _ := f.stats.FindByVisitorID(identity.ID)
	if stats.PagesSeen != 2 {
		t.Errorf("pagesSeen = %d, want 2", stats.PagesSeen)
	}
	if stats.TotalTimeSec != 42 {
		t.Errorf("totalTimeSec = %v, want 42", stats.TotalTimeSec)
	}
	if stats.MaxScrollDepth != 0.6 {
		t.Errorf("maxScrollDepth = %v, want 0.6", stats.MaxScrollDepth)
	}
	if stats.ContactSubmits != 1 || stats.Shares != 1 {
		t.Errorf("contactSubmits = %d, shares = %d, want 1 and 1", stats.ContactSubmits, stats.Shares)
	}
}

func TestScrollDepthNeverDecreases(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.8)},
	}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.2)},
	}); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	stats, _ := f.stats.FindByVisitorID(identity.ID)
	if stats.MaxScrollDepth != 0.8 {
		t.Errorf("maxScrollDepth = %v, want 0.8 (must never regress)", stats.MaxScrollDepth)
	}
}

func TestIngestByHashReference(t *testing.T) {
	f := newFixture(t)
	resolveVisitor(t, f, "abc")

	result, err := f.events.Ingest("abc", "", []visitor.Event{{Type: visitor.EventPageView}})
	if err != nil {
		t.Fatalf("ingest by hash: %v", err)
	}
	if result.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", result.Accepted)
	}
}

func TestLogFailureDoesNotBlockStats(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	f.eventLog.AppendErr = errors.New("disk full")

	_, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{{Type: visitor.EventPageView}})
	if err != nil {
		t.Fatalf("ingest should succeed despite log failure: %v", err)
	}

	stats, _ := f.stats.FindByVisitorID(identity.ID)
	if stats.PagesSeen != 1 {
		t.Errorf("pagesSeen = %d, want 1", stats.PagesSeen)
	}
	if n, _ := f.eventLog.Count(); n != 0 {
		t.Errorf("event log count = %d, want 0", n)
	}
}

func TestIngestAppendsEventLog(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	batch := []visitor.Event{
		{Type: visitor.EventPageView},
		{Type: visitor.EventShare},
	}
	if _, err := f.events.Ingest("", identity.ServerToken, batch); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if n, _ := f.eventLog.Count(); n != 2 {
		t.Errorf("event log count = %d, want 2", n)
	}
}

func TestIngestReportsNewUnlocks(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	result, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventContactSub},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// first-visit (one resolution) and connector both unlock here.
	if !containsUnlock(result.NewlyUnlocked, "contact form") {
		t.Errorf("newlyUnlocked = %v, want connector description", result.NewlyUnlocked)
	}

	// Repeating the same event must not re-report the unlock.
	repeat, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventContactSub},
	})
	if err != nil {
		t.Fatalf("repeat ingest: %v", err)
	}
	if containsUnlock(repeat.NewlyUnlocked, "contact form") {
		t.Errorf("repeat unlocked = %v, want no connector re-unlock", repeat.NewlyUnlocked)
	}
}

func containsUnlock(descriptions []string, fragment string) bool {
	for _, d := range descriptions {
		if strings.Contains(d, fragment) {
			return true
		}
	}
	return false
}
