// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/hintermann/visitforge/internal/application/services"
	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/email"
	"github.com/hintermann/visitforge/internal/infrastructure/messaging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/metrics"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
	persistence "github.com/hintermann/visitforge/internal/infrastructure/persistence/visitor"
	"github.com/hintermann/visitforge/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	IdentityService    *services.IdentityService
	EventService       *services.EventService
	AchievementService *services.AchievementService
	AuthService        *services.AuthService
	ContactService     *services.ContactService

	// Repositories
	Fingerprints visitor.FingerprintRepository
	Stats        visitor.StatsRepository
	EventLog     visitor.EventLogRepository
	Achievements visitor.AchievementRepository
	Progress     visitor.ProgressRepository

	// Infrastructure
	DB          *database.DB
	Logger      *logging.ChanneledLogger
	Metrics     *metrics.Registry
	Broadcaster *messaging.ActivityBroadcaster
}

// NewContainer creates and wires all singleton services on top of the given
// database connection. A nil mail sender disables contact delivery.
func NewContainer(db *database.DB, logger *logging.ChanneledLogger, sender email.Sender) *Container {
	m := metrics.NewRegistry()

	fingerprints := persistence.NewSQLFingerprintRepository(db, logger)
	stats := persistence.NewSQLStatsRepository(db, logger)
	eventLog := persistence.NewSQLEventLogRepository(db, logger)
	achievements := persistence.NewSQLAchievementRepository(db, logger)
	progress := persistence.NewSQLProgressRepository(db, logger)

	identityService := services.NewIdentityService(fingerprints, stats, config.FingerprintSalt, logger, m)
	achievementService := services.NewAchievementService(stats, achievements, progress, logger, m)
	eventService := services.NewEventService(identityService, achievementService, stats, eventLog, logger, m)
	authService := services.NewAuthService(config.AdminPassword, config.JWTSecret, config.AdminTokenTTL, logger)
	contactService := services.NewContactService(sender, logger)

	broadcaster := messaging.NewActivityBroadcaster(
		fingerprints, eventLog, progress, logger,
		config.ActivityTickInterval, config.MaxActivityClients,
	)

	return &Container{
		IdentityService:    identityService,
		EventService:       eventService,
		AchievementService: achievementService,
		AuthService:        authService,
		ContactService:     contactService,

		Fingerprints: fingerprints,
		Stats:        stats,
		EventLog:     eventLog,
		Achievements: achievements,
		Progress:     progress,

		DB:          db,
		Logger:      logger,
		Metrics:     m,
		Broadcaster: broadcaster,
	}
}
