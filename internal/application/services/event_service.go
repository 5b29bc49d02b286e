package services

import (
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/metrics"
)

// EventService ingests behavioral event batches: it appends them to the raw
// log, folds them into a single stats delta, applies the delta atomically,
// and triggers achievement evaluation on the updated stats.
type EventService struct {
	identity     *IdentityService
	achievements *AchievementService
	stats        visitor.StatsRepository
	log          visitor.EventLogRepository
	logger       *logging.ChanneledLogger
	metrics      *metrics.Registry
	clock        func() time.Time
}

// NewEventService creates a new event ingestion service.
func NewEventService(
	identity *IdentityService,
	achievements *AchievementService,
	stats visitor.StatsRepository,
	log visitor.EventLogRepository,
	logger *logging.ChanneledLogger,
	m *metrics.Registry,
) *EventService {
	return &EventService{
		identity:     identity,
		achievements: achievements,
		stats:        stats,
		log:          log,
		logger:       logger,
		metrics:      m,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// IngestResult reports what one accepted batch did.
type IngestResult struct {
	Accepted      int      `json:"accepted"`
	NewlyUnlocked []string `json:"newlyUnlocked,omitempty"`
}

// Ingest validates and processes one event batch for the visitor identified
// by hash or serverToken. The whole batch is rejected if it is empty or
// contains an unknown event type. Appending to the raw log is best effort; a
// log failure never blocks the stats merge.
func (s *EventService) Ingest(hash, serverToken string, events []visitor.Event) (*IngestResult, error) {
	if len(events) == 0 {
		s.rejectBatch("empty")
		return nil, fmt.Errorf("%w: event batch must not be empty", ErrInvalidRequest)
	}
	for _, ev := range events {
		if !visitor.KnownEventType(ev.Type) {
			s.rejectBatch("unknown-type")
			return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidRequest, ev.Type)
		}
	}

	identity, err := s.identity.Lookup(hash, serverToken)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		s.rejectBatch("unknown-identity")
		return nil, fmt.Errorf("%w: identity not resolved", ErrNotFound)
	}

	if err := s.log.AppendBatch(identity.ID, events, s.clock()); err != nil {
		s.logger.Analytics().Error("Event log append failed, stats merge continues",
			"visitorId", identity.ID, "events", len(events), "error", err.Error())
	}

	delta := foldBatch(events)
	if !delta.IsZero() {
		if err := s.stats.EnsureExists(identity.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := s.stats.ApplyDelta(identity.ID, delta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if s.metrics != nil {
		for _, ev := range events {
			s.metrics.EventsIngested.WithLabelValues(string(ev.Type)).Inc()
		}
	}

	unlocked, err := s.achievements.Evaluate(identity.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Analytics().Debug("Batch ingested",
		"visitorId", identity.ID, "events", len(events), "unlocked", len(unlocked))

	return &IngestResult{Accepted: len(events), NewlyUnlocked: unlocked}, nil
}

func (s *EventService) rejectBatch(reason string) {
	if s.metrics != nil {
		s.metrics.BatchesRejected.Inc()
	}
	s.logger.Analytics().Warn("Event batch rejected", "reason", reason)
}

// foldBatch reduces a batch left to right into one delta. Counters sum,
// scroll depth keeps the running maximum, time-spent values below zero are
// ignored.
func foldBatch(events []visitor.Event) visitor.StatsDelta {
	var delta visitor.StatsDelta
	for _, ev := range events {
		switch ev.Type {
		case visitor.EventPageView:
			delta.PagesSeen++
		case visitor.EventTimeSpentSec:
			if ev.ValueNum != nil && *ev.ValueNum > 0 {
				delta.TimeSec += *ev.ValueNum
			}
		case visitor.EventScrollDepth:
			if ev.ValueNum != nil && *ev.ValueNum > delta.ScrollDepth {
				depth := *ev.ValueNum
				if depth > 1 {
					depth = 1
				}
				delta.ScrollDepth = depth
			}
		case visitor.EventContactSub:
			delta.ContactSubmits++
		case visitor.EventShare:
			delta.Shares++
		}
	}
	return delta
}

// WithClock overrides the time source, for tests.
func (s *EventService) WithClock(clock func() time.Time) *EventService {
	s.clock = clock
	return s
}
