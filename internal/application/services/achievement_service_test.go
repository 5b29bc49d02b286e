package services

import (
	"testing"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
)

func viewBySlug(t *testing.T, views []AchievementView, slug string) AchievementView {
	t.Helper()
	for _, v := range views {
		if v.Slug == slug {
			return v
		}
	}
	t.Fatalf("achievement %q missing from overview", slug)
	return AchievementView{}
}

func TestExplorerScenario(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	// Five page views across five batches, one resolution only.
	for i := 0; i < 5; i++ {
		if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
			{Type: visitor.EventPageView},
		}); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	views, stats, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if stats.PagesSeen != 5 {
		t.Fatalf("pagesSeen = %d, want 5", stats.PagesSeen)
	}

	if !viewBySlug(t, views, "explorer-5-pages").Unlocked {
		t.Error("explorer-5-pages should be unlocked after 5 page views")
	}
	if !viewBySlug(t, views, "first-visit").Unlocked {
		t.Error("first-visit should be unlocked after one resolution")
	}
	if viewBySlug(t, views, "regular-5").Unlocked {
		t.Error("regular-5 should stay locked with a single resolution")
	}
}

func TestRegularFiveUnlocksViaResolutions(t *testing.T) {
	f := newFixture(t)

	var identity *visitor.Fingerprint
	for i := 0; i < 5; i++ {
		identity = resolveVisitor(t, f, "abc")
	}

	// Any batch triggers the evaluation over the merged visit count.
	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventPageView},
	}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	views, _, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if !viewBySlug(t, views, "regular-5").Unlocked {
		t.Error("regular-5 should unlock after five resolutions")
	}
}

func TestScrollMasterProgressReported(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.95)},
	}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	views, _, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	scroll := viewBySlug(t, views, "scroll-master-90")
	if !scroll.Unlocked {
		t.Error("scroll-master-90 should unlock at depth 0.95")
	}
	if scroll.ProgressNumber != 95 {
		t.Errorf("progressNumber = %v, want 95", scroll.ProgressNumber)
	}
}

func TestDeepDiveProgressCapped(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventTimeSpentSec, ValueNum: floatPtr(700)},
	}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	views, _, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	dive := viewBySlug(t, views, "deep-dive-10min")
	if !dive.Unlocked {
		t.Error("deep-dive-10min should unlock at 700 seconds")
	}
	if dive.ProgressNumber != 600 {
		t.Errorf("progressNumber = %v, want capped 600", dive.ProgressNumber)
	}
}

func TestUnlockIsOneWayAndIdempotent(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	firstAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	f.achievements.WithClock(fixedClock(firstAt))

	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventContactSub},
	}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Advance the clock; the second submit must not move unlockedAt.
	f.achievements.WithClock(fixedClock(firstAt.Add(48 * time.Hour)))
	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventContactSub},
	}); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	views, _, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	connector := viewBySlug(t, views, "connector")
	if !connector.Unlocked {
		t.Fatal("connector should be unlocked")
	}
	if !connector.UnlockedAt.Equal(firstAt) {
		t.Errorf("unlockedAt = %v, want original %v", connector.UnlockedAt, firstAt)
	}
	if connector.ProgressNumber != 1 {
		t.Errorf("progressNumber = %v, want 1 (already at goal)", connector.ProgressNumber)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.7)},
	}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := f.events.Ingest("", identity.ServerToken, []visitor.Event{
		{Type: visitor.EventScrollDepth, ValueNum: floatPtr(0.1)},
	}); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	views, _, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	scroll := viewBySlug(t, views, "scroll-master-90")
	if scroll.ProgressNumber != 70 {
		t.Errorf("progressNumber = %v, want 70 (non-decreasing)", scroll.ProgressNumber)
	}
}

func TestOverviewForFreshVisitor(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	views, stats, err := f.achievements.Overview(identity.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(views) != 7 {
		t.Fatalf("views = %d, want full catalog of 7", len(views))
	}
	if stats == nil || stats.Visits != 1 {
		t.Errorf("stats = %+v, want visits 1", stats)
	}
	// No evaluation has run yet, so nothing shows unlocked.
	for _, v := range views {
		if v.Unlocked {
			t.Errorf("achievement %q unlocked before any evaluation", v.Slug)
		}
	}
}

func TestEvaluateSeedsCatalogOnDemand(t *testing.T) {
	f := newFixture(t)
	identity := resolveVisitor(t, f, "abc")

	if rows, _ := f.catalog.All(); len(rows) != 0 {
		t.Fatalf("catalog should start empty, has %d rows", len(rows))
	}

	if _, err := f.achievements.Evaluate(identity.ID); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	rows, _ := f.catalog.All()
	if len(rows) != 7 {
		t.Fatalf("catalog rows = %d after evaluation, want 7", len(rows))
	}
}
