package visitor

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
)

// SQLProgressRepository is the SQL-based implementation of the per-visitor
// achievement progress store.
type SQLProgressRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLProgressRepository creates a new instance of the repository.
func NewSQLProgressRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLProgressRepository {
	return &SQLProgressRepository{
		db:     db,
		logger: logger,
	}
}

// ListByVisitor returns every progress row for a visitor.
func (r *SQLProgressRepository) ListByVisitor(visitorID string) ([]*visitor.Progress, error) {
	const query = `
		SELECT id, visitor_id, achievement_id, progress_number, unlocked_at, last_progress_at
		FROM visitor_achievements
		WHERE visitor_id = ?`

	start := time.Now()
	rows, err := r.db.Query(query, visitorID)
	if err != nil {
		r.logger.Database().Error("Failed to load visitor progress", "error", err.Error(), "visitorId", visitorID)
		return nil, err
	}
	defer rows.Close()

	var result []*visitor.Progress
	for rows.Next() {
		var p visitor.Progress
		var unlockedAtStr sql.NullString
		var lastProgressAtStr string

		err := rows.Scan(&p.ID, &p.VisitorID, &p.AchievementID, &p.ProgressNumber, &unlockedAtStr, &lastProgressAtStr)
		if err != nil {
			return nil, err
		}

		if unlockedAtStr.Valid {
			t, err := parseTimestamp(unlockedAtStr.String)
			if err != nil {
				return nil, err
			}
			p.UnlockedAt = &t
		}
		if p.LastProgressAt, err = parseTimestamp(lastProgressAtStr); err != nil {
			return nil, err
		}

		result = append(result, &p)
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return result, rows.Err()
}

// UpsertMonotonic creates the progress row if absent, otherwise merges it.
// ProgressNumber never decreases and COALESCE keeps the first unlocked_at
// forever, so the unlock transition is one-way even under concurrent
// evaluations.
func (r *SQLProgressRepository) UpsertMonotonic(p *visitor.Progress) error {
	const query = `
		INSERT INTO visitor_achievements (id, visitor_id, achievement_id, progress_number, unlocked_at, last_progress_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(visitor_id, achievement_id) DO UPDATE SET
			progress_number = MAX(progress_number, excluded.progress_number),
			unlocked_at = COALESCE(unlocked_at, excluded.unlocked_at),
			last_progress_at = excluded.last_progress_at`

	start := time.Now()

	var unlockedAt *string
	if p.UnlockedAt != nil {
		s := p.UnlockedAt.UTC().Format(time.RFC3339)
		unlockedAt = &s
	}

	_, err := r.db.Exec(
		query,
		p.ID,
		p.VisitorID,
		p.AchievementID,
		p.ProgressNumber,
		unlockedAt,
		p.LastProgressAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		r.logger.Database().Error("Progress upsert failed", "error", err.Error(),
			"visitorId", p.VisitorID, "achievementId", p.AchievementID)
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// CountUnlocked returns the total number of unlocked (visitor, achievement)
// pairs across all visitors.
func (r *SQLProgressRepository) CountUnlocked() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM visitor_achievements WHERE unlocked_at IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unlocks: %w", err)
	}
	return count, nil
}
