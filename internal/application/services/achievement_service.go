package services

import (
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/achievements"
	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/metrics"
	"github.com/hintermann/visitforge/internal/infrastructure/security"
)

// AchievementService evaluates the rule catalog against a visitor's roll-up
// stats and persists unlock/progress state.
type AchievementService struct {
	stats    visitor.StatsRepository
	catalog  visitor.AchievementRepository
	progress visitor.ProgressRepository
	logger   *logging.ChanneledLogger
	metrics  *metrics.Registry
	clock    func() time.Time
}

// NewAchievementService creates a new achievement service.
func NewAchievementService(
	stats visitor.StatsRepository,
	catalog visitor.AchievementRepository,
	progress visitor.ProgressRepository,
	logger *logging.ChanneledLogger,
	m *metrics.Registry,
) *AchievementService {
	return &AchievementService{
		stats:    stats,
		catalog:  catalog,
		progress: progress,
		logger:   logger,
		metrics:  m,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// AchievementView is one catalog entry joined with the visitor's progress,
// shaped for the achievements listing response.
type AchievementView struct {
	Slug           string     `json:"slug"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Icon           string     `json:"icon"`
	GoalNumber     float64    `json:"goalNumber"`
	Unlocked       bool       `json:"unlocked"`
	ProgressNumber float64    `json:"progressNumber"`
	UnlockedAt     *time.Time `json:"unlockedAt"`
}

// SeedCatalog ensures every shipped rule has a catalog row. Safe to call on
// every evaluation; only missing slugs are inserted.
func (s *AchievementService) SeedCatalog() error {
	if err := s.catalog.SeedMissing(achievements.Definitions()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Evaluate runs every rule against the visitor's current stats, persists the
// resulting progress monotonically, and returns the descriptions of
// achievements unlocked during this call. Repeat evaluations after an unlock
// return nothing for that rule.
func (s *AchievementService) Evaluate(visitorID string) ([]string, error) {
	if err := s.stats.EnsureExists(visitorID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	stats, err := s.stats.FindByVisitorID(visitorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if stats == nil {
		stats = &visitor.Stats{VisitorID: visitorID}
	}

	if err := s.SeedCatalog(); err != nil {
		return nil, err
	}
	catalog, err := s.catalog.All()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	idBySlug := make(map[string]string, len(catalog))
	for _, a := range catalog {
		idBySlug[a.Slug] = a.ID
	}

	current, err := s.progress.ListByVisitor(visitorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	currentByAchievement := make(map[string]*visitor.Progress, len(current))
	for _, p := range current {
		currentByAchievement[p.AchievementID] = p
	}

	now := s.clock()
	var newlyUnlocked []string

	for _, rule := range achievements.Catalog {
		achievementID, ok := idBySlug[rule.Slug]
		if !ok {
			s.logger.Achievements().Error("Catalog row missing after seed", "slug", rule.Slug)
			continue
		}

		result := rule.Evaluate(stats)
		existing := currentByAchievement[achievementID]

		update := &visitor.Progress{
			ID:             security.GenerateULID(),
			VisitorID:      visitorID,
			AchievementID:  achievementID,
			ProgressNumber: result.Progress,
			LastProgressAt: now,
		}
		if existing != nil {
			update.ID = existing.ID
			if existing.ProgressNumber > update.ProgressNumber {
				update.ProgressNumber = existing.ProgressNumber
			}
		}
		if result.Unlocked {
			update.UnlockedAt = &now
		}

		if err := s.progress.UpsertMonotonic(update); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if result.Unlocked && !existing.Unlocked() {
			newlyUnlocked = append(newlyUnlocked, rule.Description)
			if s.metrics != nil {
				s.metrics.Unlocks.WithLabelValues(rule.Slug).Inc()
			}
			s.logger.Achievements().Info("Achievement unlocked", "visitorId", visitorID, "slug", rule.Slug)
		}
	}

	return newlyUnlocked, nil
}

// Overview returns every catalog entry joined with the visitor's progress,
// plus the visitor's stats. A nil stats result means the visitor has no
// roll-up record yet.
func (s *AchievementService) Overview(visitorID string) ([]AchievementView, *visitor.Stats, error) {
	if err := s.SeedCatalog(); err != nil {
		return nil, nil, err
	}
	catalog, err := s.catalog.All()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	progress, err := s.progress.ListByVisitor(visitorID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	progressByAchievement := make(map[string]*visitor.Progress, len(progress))
	for _, p := range progress {
		progressByAchievement[p.AchievementID] = p
	}

	views := make([]AchievementView, 0, len(catalog))
	for _, a := range catalog {
		view := AchievementView{
			Slug:        a.Slug,
			Title:       a.Title,
			Description: a.Description,
			Icon:        a.Icon,
			GoalNumber:  a.GoalNumber,
		}
		if p := progressByAchievement[a.ID]; p != nil {
			view.Unlocked = p.Unlocked()
			view.ProgressNumber = p.ProgressNumber
			view.UnlockedAt = p.UnlockedAt
		}
		views = append(views, view)
	}

	stats, err := s.stats.FindByVisitorID(visitorID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return views, stats, nil
}

// WithClock overrides the time source, for tests.
func (s *AchievementService) WithClock(clock func() time.Time) *AchievementService {
	s.clock = clock
	return s
}
