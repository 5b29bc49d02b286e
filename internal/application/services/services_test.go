package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/metrics"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/memory"
)

// fixture wires the full service stack over in-memory repositories.
type fixture struct {
	identity     *IdentityService
	events       *EventService
	achievements *AchievementService

	fingerprints *memory.FingerprintRepository
	stats        *memory.StatsRepository
	eventLog     *memory.EventLogRepository
	catalog      *memory.AchievementRepository
	progress     *memory.ProgressRepository
}

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = slog.LevelError + 1
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return logger
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testLogger(t)
	m := metrics.NewRegistry()

	f := &fixture{
		fingerprints: memory.NewFingerprintRepository(),
		stats:        memory.NewStatsRepository(),
		eventLog:     memory.NewEventLogRepository(),
		catalog:      memory.NewAchievementRepository(),
		progress:     memory.NewProgressRepository(),
	}

	f.identity = NewIdentityService(f.fingerprints, f.stats, "test-salt", logger, m)
	f.achievements = NewAchievementService(f.stats, f.catalog, f.progress, logger, m)
	f.events = NewEventService(f.identity, f.achievements, f.stats, f.eventLog, logger, m)
	return f
}

func floatPtr(v float64) *float64 { return &v }
