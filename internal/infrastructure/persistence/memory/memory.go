// Package memory provides in-memory implementations of the visitor domain
// repositories. They mirror the SQL repositories' merge semantics and back
// the test suites; nothing production-facing depends on them.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/security"
)

// FingerprintRepository is a mutex-guarded map keyed by hash.
type FingerprintRepository struct {
	mu      sync.Mutex
	byHash  map[string]*visitor.Fingerprint
	byToken map[string]*visitor.Fingerprint
}

// NewFingerprintRepository creates an empty store.
func NewFingerprintRepository() *FingerprintRepository {
	return &FingerprintRepository{
		byHash:  make(map[string]*visitor.Fingerprint),
		byToken: make(map[string]*visitor.Fingerprint),
	}
}

func cloneFingerprint(fp *visitor.Fingerprint) *visitor.Fingerprint {
	if fp == nil {
		return nil
	}
	c := *fp
	return &c
}

func (r *FingerprintRepository) FindByHash(hash string) (*visitor.Fingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneFingerprint(r.byHash[hash]), nil
}

func (r *FingerprintRepository) FindByServerToken(token string) (*visitor.Fingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneFingerprint(r.byToken[token]), nil
}

func (r *FingerprintRepository) Upsert(fp *visitor.Fingerprint) (*visitor.Fingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byHash[fp.Hash]
	if !ok {
		created := cloneFingerprint(fp)
		created.Visits = 1
		r.byHash[created.Hash] = created
		r.byToken[created.ServerToken] = created
		return cloneFingerprint(created), nil
	}

	existing.Visits++
	existing.LastSeen = fp.LastSeen
	if fp.UserAgent != nil {
		existing.UserAgent = fp.UserAgent
	}
	if fp.IP != nil {
		existing.IP = fp.IP
	}
	return cloneFingerprint(existing), nil
}

func (r *FingerprintRepository) ListRecent(limit int) ([]*visitor.Fingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*visitor.Fingerprint, 0, len(r.byHash))
	for _, fp := range r.byHash {
		all = append(all, cloneFingerprint(fp))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastSeen.After(all[j].LastSeen) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *FingerprintRepository) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash), nil
}

// StatsRepository is a mutex-guarded map keyed by visitor id.
type StatsRepository struct {
	mu    sync.Mutex
	stats map[string]*visitor.Stats
}

// NewStatsRepository creates an empty store.
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{stats: make(map[string]*visitor.Stats)}
}

func (r *StatsRepository) FindByVisitorID(visitorID string) (*visitor.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[visitorID]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *StatsRepository) EnsureExists(visitorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stats[visitorID]; !ok {
		r.stats[visitorID] = &visitor.Stats{VisitorID: visitorID}
	}
	return nil
}

func (r *StatsRepository) ApplyDelta(visitorID string, delta visitor.StatsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[visitorID]
	if !ok {
		return nil
	}
	s.PagesSeen += delta.PagesSeen
	s.TotalTimeSec += delta.TimeSec
	if delta.ScrollDepth > s.MaxScrollDepth {
		s.MaxScrollDepth = delta.ScrollDepth
	}
	s.ContactSubmits += delta.ContactSubmits
	s.Shares += delta.Shares
	return nil
}

func (r *StatsRepository) MergeVisits(visitorID string, visits int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[visitorID]
	if !ok {
		return nil
	}
	if visits > s.Visits {
		s.Visits = visits
	}
	return nil
}

// EventLogRepository is an append-only slice.
type EventLogRepository struct {
	mu      sync.Mutex
	entries []*visitor.LogEntry

	// AppendErr, when set, makes AppendBatch fail; used to exercise the
	// best-effort coupling between log and stats writes.
	AppendErr error
}

// NewEventLogRepository creates an empty store.
func NewEventLogRepository() *EventLogRepository {
	return &EventLogRepository{}
}

func (r *EventLogRepository) AppendBatch(visitorID string, events []visitor.Event, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return r.AppendErr
	}
	for _, event := range events {
		entry := &visitor.LogEntry{
			ID:        security.GenerateULID(),
			VisitorID: visitorID,
			Type:      event.Type,
			ValueNum:  event.ValueNum,
			CreatedAt: now,
		}
		r.entries = append(r.entries, entry)
	}
	return nil
}

func (r *EventLogRepository) ListRecent(limit int) ([]*visitor.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	if limit > n {
		limit = n
	}
	result := make([]*visitor.LogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, r.entries[i])
	}
	return result, nil
}

func (r *EventLogRepository) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}

// AchievementRepository is a slug-keyed catalog store.
type AchievementRepository struct {
	mu   sync.Mutex
	rows []*visitor.Achievement
}

// NewAchievementRepository creates an empty store.
func NewAchievementRepository() *AchievementRepository {
	return &AchievementRepository{}
}

func (r *AchievementRepository) All() ([]*visitor.Achievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*visitor.Achievement, 0, len(r.rows))
	for _, a := range r.rows {
		c := *a
		result = append(result, &c)
	}
	return result, nil
}

func (r *AchievementRepository) SeedMissing(defs []*visitor.Achievement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := make(map[string]bool, len(r.rows))
	for _, a := range r.rows {
		existing[a.Slug] = true
	}
	for _, def := range defs {
		if existing[def.Slug] {
			continue
		}
		c := *def
		if c.ID == "" {
			c.ID = security.GenerateULID()
		}
		r.rows = append(r.rows, &c)
	}
	return nil
}

// ProgressRepository is keyed by (visitor, achievement).
type ProgressRepository struct {
	mu   sync.Mutex
	rows map[string]*visitor.Progress
}

// NewProgressRepository creates an empty store.
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{rows: make(map[string]*visitor.Progress)}
}

func progressKey(visitorID, achievementID string) string {
	return visitorID + "|" + achievementID
}

func (r *ProgressRepository) ListByVisitor(visitorID string) ([]*visitor.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*visitor.Progress
	for _, p := range r.rows {
		if p.VisitorID == visitorID {
			c := *p
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *ProgressRepository) UpsertMonotonic(p *visitor.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := progressKey(p.VisitorID, p.AchievementID)
	existing, ok := r.rows[key]
	if !ok {
		c := *p
		r.rows[key] = &c
		return nil
	}

	if p.ProgressNumber > existing.ProgressNumber {
		existing.ProgressNumber = p.ProgressNumber
	}
	if existing.UnlockedAt == nil && p.UnlockedAt != nil {
		t := *p.UnlockedAt
		existing.UnlockedAt = &t
	}
	existing.LastProgressAt = p.LastProgressAt
	return nil
}

func (r *ProgressRepository) CountUnlocked() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, p := range r.rows {
		if p.UnlockedAt != nil {
			count++
		}
	}
	return count, nil
}
