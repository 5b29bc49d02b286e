package achievements

import (
	"testing"

	"github.com/hintermann/visitforge/internal/domain/visitor"
)

func TestCatalogHasSevenRules(t *testing.T) {
	if len(Catalog) != 7 {
		t.Fatalf("expected 7 rules, got %d", len(Catalog))
	}

	seen := make(map[string]bool)
	for _, r := range Catalog {
		if seen[r.Slug] {
			t.Fatalf("duplicate slug %q", r.Slug)
		}
		seen[r.Slug] = true
	}
}

func TestEvaluateFirstVisit(t *testing.T) {
	rule, ok := BySlug("first-visit")
	if !ok {
		t.Fatal("first-visit rule missing")
	}

	result := rule.Evaluate(&visitor.Stats{Visits: 1})
	if !result.Unlocked {
		t.Error("expected unlock with one visit")
	}
	if result.Progress != 1 {
		t.Errorf("progress = %v, want 1", result.Progress)
	}

	result = rule.Evaluate(&visitor.Stats{Visits: 0})
	if result.Unlocked {
		t.Error("expected no unlock with zero visits")
	}
}

func TestEvaluateRegularFive(t *testing.T) {
	rule, _ := BySlug("regular-5")

	for visits, want := range map[int]bool{1: false, 4: false, 5: true, 9: true} {
		result := rule.Evaluate(&visitor.Stats{Visits: visits})
		if result.Unlocked != want {
			t.Errorf("visits=%d: unlocked = %v, want %v", visits, result.Unlocked, want)
		}
	}

	result := rule.Evaluate(&visitor.Stats{Visits: 3})
	if result.Progress != 3 {
		t.Errorf("progress = %v, want 3", result.Progress)
	}

	result = rule.Evaluate(&visitor.Stats{Visits: 9})
	if result.Progress != 5 {
		t.Errorf("progress capped = %v, want 5", result.Progress)
	}
}

func TestEvaluateScrollMasterScalesProgress(t *testing.T) {
	rule, _ := BySlug("scroll-master-90")

	result := rule.Evaluate(&visitor.Stats{MaxScrollDepth: 0.95})
	if !result.Unlocked {
		t.Error("expected unlock at depth 0.95")
	}
	if result.Progress != 95 {
		t.Errorf("progress = %v, want 95", result.Progress)
	}

	result = rule.Evaluate(&visitor.Stats{MaxScrollDepth: 0.5})
	if result.Unlocked {
		t.Error("expected no unlock at depth 0.5")
	}
	if result.Progress != 50 {
		t.Errorf("progress = %v, want 50", result.Progress)
	}

	result = rule.Evaluate(&visitor.Stats{MaxScrollDepth: 0.9})
	if !result.Unlocked {
		t.Error("expected unlock exactly at the 0.9 threshold")
	}
}

func TestEvaluateDeepDiveCapsProgressAtGoal(t *testing.T) {
	rule, _ := BySlug("deep-dive-10min")

	result := rule.Evaluate(&visitor.Stats{TotalTimeSec: 700})
	if !result.Unlocked {
		t.Error("expected unlock at 700 seconds")
	}
	if result.Progress != 600 {
		t.Errorf("progress = %v, want capped 600", result.Progress)
	}

	result = rule.Evaluate(&visitor.Stats{TotalTimeSec: 599.6})
	if result.Unlocked {
		t.Error("expected no unlock below 600 seconds")
	}
	if result.Progress != 600 {
		// 599.6 rounds to 600 but the threshold compares the raw value.
		t.Errorf("progress = %v, want 600", result.Progress)
	}
}

func TestEvaluateSingleActionRules(t *testing.T) {
	connector, _ := BySlug("connector")
	hype, _ := BySlug("hype-agent")

	if !connector.Evaluate(&visitor.Stats{ContactSubmits: 1}).Unlocked {
		t.Error("connector should unlock on first contact submit")
	}
	if !hype.Evaluate(&visitor.Stats{Shares: 2}).Unlocked {
		t.Error("hype-agent should unlock with shares recorded")
	}
	if connector.Evaluate(&visitor.Stats{}).Unlocked {
		t.Error("connector should stay locked with no submits")
	}
}

func TestDefinitionsMatchCatalog(t *testing.T) {
	defs := Definitions()
	if len(defs) != len(Catalog) {
		t.Fatalf("definitions count = %d, want %d", len(defs), len(Catalog))
	}
	for i, def := range defs {
		if def.Slug != Catalog[i].Slug {
			t.Errorf("definition %d slug = %q, want %q", i, def.Slug, Catalog[i].Slug)
		}
		if def.GoalNumber != Catalog[i].Goal {
			t.Errorf("definition %q goal = %v, want %v", def.Slug, def.GoalNumber, Catalog[i].Goal)
		}
	}
}
