package visitor

import "time"

// FingerprintRepository defines the operations for persisting Fingerprint
// entities. Upsert is the single place visit counts increment; it must be
// idempotent per call and monotonic under concurrent calls for the same hash.
type FingerprintRepository interface {
	FindByHash(hash string) (*Fingerprint, error)
	FindByServerToken(token string) (*Fingerprint, error)
	// Upsert creates the record with Visits=1 on first sight of the hash, or
	// increments Visits and refreshes LastSeen/UserAgent/IP otherwise. The
	// persisted row is returned.
	Upsert(fp *Fingerprint) (*Fingerprint, error)
	ListRecent(limit int) ([]*Fingerprint, error)
	Count() (int, error)
}

// StatsRepository defines the operations for the per-visitor roll-up record.
// Every write is a monotonic merge executed atomically by the store.
type StatsRepository interface {
	FindByVisitorID(visitorID string) (*Stats, error)
	// EnsureExists is an insert-if-absent; concurrent first-time callers must
	// both succeed with exactly one row created.
	EnsureExists(visitorID string) error
	// ApplyDelta merges the delta into the row: counters are summed, scroll
	// depth takes the max of stored and candidate values.
	ApplyDelta(visitorID string, delta StatsDelta) error
	// MergeVisits lifts the stored visit count to at least visits.
	MergeVisits(visitorID string, visits int) error
}

// EventLogRepository defines append-only access to the raw event trail.
type EventLogRepository interface {
	AppendBatch(visitorID string, events []Event, now time.Time) error
	// ListRecent serves the admin audit view; core logic never calls it.
	ListRecent(limit int) ([]*LogEntry, error)
	Count() (int, error)
}

// AchievementRepository defines the operations for the achievement catalog.
type AchievementRepository interface {
	All() ([]*Achievement, error)
	// SeedMissing inserts any catalog entries whose slug is not yet present.
	// Existing rows are left untouched.
	SeedMissing(defs []*Achievement) error
}

// ProgressRepository defines the operations for per-visitor achievement
// progress rows.
type ProgressRepository interface {
	ListByVisitor(visitorID string) ([]*Progress, error)
	// UpsertMonotonic creates the row if absent, otherwise merges it:
	// progress never decreases and a non-nil stored UnlockedAt is preserved.
	UpsertMonotonic(p *Progress) error
	CountUnlocked() (int, error)
}
