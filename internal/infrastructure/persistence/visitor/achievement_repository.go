package visitor

import (
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
	"github.com/hintermann/visitforge/internal/infrastructure/security"
)

// SQLAchievementRepository is the SQL-based implementation of the achievement
// catalog store.
type SQLAchievementRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLAchievementRepository creates a new instance of the repository.
func NewSQLAchievementRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLAchievementRepository {
	return &SQLAchievementRepository{
		db:     db,
		logger: logger,
	}
}

// All returns every catalog row in insertion order.
func (r *SQLAchievementRepository) All() ([]*visitor.Achievement, error) {
	const query = `
		SELECT id, slug, title, description, icon, goal_number
		FROM achievements
		ORDER BY rowid`

	start := time.Now()
	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to load achievement catalog", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*visitor.Achievement
	for rows.Next() {
		var a visitor.Achievement
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Description, &a.Icon, &a.GoalNumber); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return result, rows.Err()
}

// SeedMissing inserts catalog entries whose slug is not yet present,
// leaving existing rows untouched.
func (r *SQLAchievementRepository) SeedMissing(defs []*visitor.Achievement) error {
	const query = `
		INSERT OR IGNORE INTO achievements (id, slug, title, description, icon, goal_number)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	for _, def := range defs {
		id := def.ID
		if id == "" {
			id = security.GenerateULID()
		}
		_, err := r.db.Exec(query, id, def.Slug, def.Title, def.Description, def.Icon, def.GoalNumber)
		if err != nil {
			r.logger.Database().Error("Achievement seed failed", "error", err.Error(), "slug", def.Slug)
			return fmt.Errorf("failed to seed achievement %s: %w", def.Slug, err)
		}
	}
	database.CheckAndLogSlowQuery(r.logger, "BULK_ACHIEVEMENT_SEED", time.Since(start))
	return nil
}
