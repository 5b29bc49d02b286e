// Package visitor defines the entities and repository interfaces for
// anonymous visitor identity, roll-up statistics, the raw event log, and
// achievement progress. These repositories abstract the data persistence
// details, ensuring the core application is clean and decoupled from the
// database.
package visitor

import "time"

// EventType enumerates the behavioral events a visitor can produce.
type EventType string

const (
	EventPageView     EventType = "PAGE_VIEW"
	EventTimeSpentSec EventType = "TIME_SPENT_SEC"
	EventScrollDepth  EventType = "SCROLL_DEPTH"
	EventContactSub   EventType = "CONTACT_SUBMIT"
	EventShare        EventType = "SHARE"
)

// KnownEventType reports whether t is one of the enumerated event types.
func KnownEventType(t EventType) bool {
	switch t {
	case EventPageView, EventTimeSpentSec, EventScrollDepth, EventContactSub, EventShare:
		return true
	}
	return false
}

// Fingerprint represents one distinct browser/device identity, keyed by the
// client-computed fingerprint hash. The server token is a keyed transform of
// the hash and is the only identifier handed back to the client.
type Fingerprint struct {
	ID          string    `json:"id"`
	Hash        string    `json:"hash"`
	ServerToken string    `json:"serverToken"`
	Visits      int       `json:"visits"`
	UserAgent   *string   `json:"userAgent,omitempty"`
	IP          *string   `json:"ip,omitempty"`
	Meta        *string   `json:"meta,omitempty"` // raw client signals, JSON-encoded
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Stats is the per-visitor roll-up record. Every field is monotonically
// non-decreasing; updates merge with max/sum, never overwrite downward.
type Stats struct {
	VisitorID      string  `json:"visitorId"`
	Visits         int     `json:"visits"`
	PagesSeen      int     `json:"pagesSeen"`
	TotalTimeSec   float64 `json:"totalTimeSec"`
	MaxScrollDepth float64 `json:"maxScrollDepth"` // 0.0 .. 1.0
	ContactSubmits int     `json:"contactSubmits"`
	Shares         int     `json:"shares"`
}

// StatsDelta is the result of folding one event batch; it is applied to a
// Stats row as a single atomic merge.
type StatsDelta struct {
	PagesSeen      int
	TimeSec        float64
	ScrollDepth    float64 // candidate for MAX, not a sum
	ContactSubmits int
	Shares         int
}

// IsZero reports whether applying the delta would be a no-op.
func (d StatsDelta) IsZero() bool {
	return d.PagesSeen == 0 && d.TimeSec == 0 && d.ScrollDepth == 0 &&
		d.ContactSubmits == 0 && d.Shares == 0
}

// Event is one incoming behavioral event within an ingestion batch.
type Event struct {
	Type     EventType `json:"type"`
	ValueNum *float64  `json:"valueNum,omitempty"`
	Meta     any       `json:"meta,omitempty"`
}

// LogEntry is an appended event-log row. Rows are immutable facts; the core
// never reads them back.
type LogEntry struct {
	ID        string    `json:"id"`
	VisitorID string    `json:"visitorId"`
	Type      EventType `json:"type"`
	ValueNum  *float64  `json:"valueNum,omitempty"`
	Meta      *string   `json:"meta,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Achievement is one row of the static achievement catalog, seeded from the
// rule definitions on demand.
type Achievement struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	GoalNumber  float64 `json:"goalNumber"`
}

// Progress is the join of one visitor and one achievement. ProgressNumber is
// monotonically non-decreasing and UnlockedAt, once set, never changes.
type Progress struct {
	ID             string     `json:"id"`
	VisitorID      string     `json:"visitorId"`
	AchievementID  string     `json:"achievementId"`
	ProgressNumber float64    `json:"progressNumber"`
	UnlockedAt     *time.Time `json:"unlockedAt,omitempty"`
	LastProgressAt time.Time  `json:"lastProgressAt"`
}

// Unlocked reports whether the one-way unlock transition has happened.
func (p *Progress) Unlocked() bool {
	return p != nil && p.UnlockedAt != nil
}
