// Package achievements holds the static achievement rule catalog and the
// pure evaluation logic that turns roll-up stats into unlock decisions.
package achievements

import (
	"math"

	"github.com/hintermann/visitforge/internal/domain/visitor"
)

// StatField tags which roll-up statistic a rule reads. Keeping rules keyed by
// a closed enumeration (rather than arbitrary functions) keeps the catalog
// serializable and testable in isolation.
type StatField string

const (
	StatVisits         StatField = "visits"
	StatPagesSeen      StatField = "pagesSeen"
	StatTotalTimeSec   StatField = "totalTimeSec"
	StatMaxScrollDepth StatField = "maxScrollDepth"
	StatContactSubmits StatField = "contactSubmits"
	StatShares         StatField = "shares"
)

// Rule is one catalog entry: presentation metadata plus the unlock predicate
// expressed as (stat field, threshold) and a progress mapping.
type Rule struct {
	Slug        string
	Title       string
	Description string
	Icon        string

	Stat      StatField
	Threshold float64 // unlock when the raw stat reaches this value
	Goal      float64 // progress ceiling reported to progress-bar UIs
	Scale     float64 // raw stat -> progress multiplier (1 when zero)
}

// Result is the outcome of evaluating one rule against one stats record.
type Result struct {
	Unlocked bool
	Progress float64
	Goal     float64
}

// Catalog is the fixed set of shipped rules. Order is presentation order.
var Catalog = []Rule{
	{
		Slug:        "first-visit",
		Title:       "First Visit",
		Description: "You made it here. Welcome! 🎉",
		Icon:        "🎉",
		Stat:        StatVisits,
		Threshold:   1,
		Goal:        1,
	},
	{
		Slug:        "regular-5",
		Title:       "Regular",
		Description: "Visited 5 times.",
		Icon:        "📅",
		Stat:        StatVisits,
		Threshold:   5,
		Goal:        5,
	},
	{
		Slug:        "explorer-5-pages",
		Title:       "Explorer",
		Description: "Viewed 5 pages.",
		Icon:        "🧭",
		Stat:        StatPagesSeen,
		Threshold:   5,
		Goal:        5,
	},
	{
		Slug:        "deep-dive-10min",
		Title:       "Deep Diver",
		Description: "Spent 10+ minutes total.",
		Icon:        "⏱️",
		Stat:        StatTotalTimeSec,
		Threshold:   600,
		Goal:        600,
	},
	{
		Slug:        "scroll-master-90",
		Title:       "Scroll Master",
		Description: "Scrolled 90%+ of a page.",
		Icon:        "🧷",
		Stat:        StatMaxScrollDepth,
		Threshold:   0.9,
		Goal:        100,
		Scale:       100,
	},
	{
		Slug:        "connector",
		Title:       "Connector",
		Description: "Submitted the contact form once.",
		Icon:        "✉️",
		Stat:        StatContactSubmits,
		Threshold:   1,
		Goal:        1,
	},
	{
		Slug:        "hype-agent",
		Title:       "Hype Agent",
		Description: "Shared the site.",
		Icon:        "📣",
		Stat:        StatShares,
		Threshold:   1,
		Goal:        1,
	},
}

// statValue extracts the tagged field from a stats record.
func statValue(stats *visitor.Stats, field StatField) float64 {
	switch field {
	case StatVisits:
		return float64(stats.Visits)
	case StatPagesSeen:
		return float64(stats.PagesSeen)
	case StatTotalTimeSec:
		return stats.TotalTimeSec
	case StatMaxScrollDepth:
		return stats.MaxScrollDepth
	case StatContactSubmits:
		return float64(stats.ContactSubmits)
	case StatShares:
		return float64(stats.Shares)
	}
	return 0
}

// Evaluate computes the rule's unlock/progress result for the given stats.
// Progress is the scaled stat rounded to the nearest integer and capped at
// the goal, so a 0.95 scroll depth reports 95 of 100 and 700 accumulated
// seconds report the 600-second goal, not the raw total.
func (r Rule) Evaluate(stats *visitor.Stats) Result {
	raw := statValue(stats, r.Stat)
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	progress := math.Round(raw * scale)
	if progress > r.Goal {
		progress = r.Goal
	}
	return Result{
		Unlocked: raw >= r.Threshold,
		Progress: progress,
		Goal:     r.Goal,
	}
}

// Definitions returns the catalog as persistable achievement rows, without
// IDs; the store assigns those on seed.
func Definitions() []*visitor.Achievement {
	defs := make([]*visitor.Achievement, 0, len(Catalog))
	for _, r := range Catalog {
		defs = append(defs, &visitor.Achievement{
			Slug:        r.Slug,
			Title:       r.Title,
			Description: r.Description,
			Icon:        r.Icon,
			GoalNumber:  r.Goal,
		})
	}
	return defs
}

// BySlug returns the rule with the given slug, if present.
func BySlug(slug string) (Rule, bool) {
	for _, r := range Catalog {
		if r.Slug == slug {
			return r, true
		}
	}
	return Rule{}, false
}
