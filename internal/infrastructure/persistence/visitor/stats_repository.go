package visitor

import (
	"database/sql"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
)

// SQLStatsRepository is the SQL-based implementation of the StatsRepository.
// All writes are expressed as monotonic merges inside a single UPDATE so
// concurrent batches for the same visitor can interleave without regressing
// any counter.
type SQLStatsRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLStatsRepository creates a new instance of the repository.
func NewSQLStatsRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLStatsRepository {
	return &SQLStatsRepository{
		db:     db,
		logger: logger,
	}
}

// FindByVisitorID retrieves the roll-up record for a visitor.
func (r *SQLStatsRepository) FindByVisitorID(visitorID string) (*visitor.Stats, error) {
	const query = `
		SELECT visitor_id, visits, pages_seen, total_time_sec, max_scroll_depth, contact_submits, shares
		FROM visitor_stats
		WHERE visitor_id = ?`

	start := time.Now()
	var stats visitor.Stats
	err := r.db.QueryRow(query, visitorID).Scan(
		&stats.VisitorID,
		&stats.Visits,
		&stats.PagesSeen,
		&stats.TotalTimeSec,
		&stats.MaxScrollDepth,
		&stats.ContactSubmits,
		&stats.Shares,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Failed to load visitor stats", "error", err.Error(), "visitorId", visitorID)
		return nil, err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return &stats, nil
}

// EnsureExists lazily creates the stats row. INSERT OR IGNORE closes the race
// window when two first-time evaluations arrive concurrently.
func (r *SQLStatsRepository) EnsureExists(visitorID string) error {
	const query = `INSERT OR IGNORE INTO visitor_stats (visitor_id) VALUES (?)`

	start := time.Now()
	if _, err := r.db.Exec(query, visitorID); err != nil {
		r.logger.Database().Error("Stats insert-if-absent failed", "error", err.Error(), "visitorId", visitorID)
		return err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// ApplyDelta folds one batch's delta into the row atomically. Counters are
// summed and scroll depth takes the larger of stored and candidate values.
func (r *SQLStatsRepository) ApplyDelta(visitorID string, delta visitor.StatsDelta) error {
	if delta.IsZero() {
		return nil
	}

	const query = `
		UPDATE visitor_stats SET
			pages_seen = pages_seen + ?,
			total_time_sec = total_time_sec + ?,
			max_scroll_depth = MAX(max_scroll_depth, ?),
			contact_submits = contact_submits + ?,
			shares = shares + ?
		WHERE visitor_id = ?`

	start := time.Now()
	_, err := r.db.Exec(
		query,
		delta.PagesSeen,
		delta.TimeSec,
		delta.ScrollDepth,
		delta.ContactSubmits,
		delta.Shares,
		visitorID,
	)
	if err != nil {
		r.logger.Database().Error("Stats delta update failed", "error", err.Error(), "visitorId", visitorID)
		return err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// MergeVisits lifts stats.visits to at least the fingerprint's visit count.
func (r *SQLStatsRepository) MergeVisits(visitorID string, visits int) error {
	const query = `UPDATE visitor_stats SET visits = MAX(visits, ?) WHERE visitor_id = ?`

	start := time.Now()
	if _, err := r.db.Exec(query, visits, visitorID); err != nil {
		r.logger.Database().Error("Stats visits merge failed", "error", err.Error(), "visitorId", visitorID)
		return err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}
