package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/metrics"
	"github.com/hintermann/visitforge/internal/infrastructure/security"
)

// IdentityService resolves client fingerprint hashes into visitor identities.
// Resolve is the single place visit counts increment; callers must not invoke
// it more than once per page load.
type IdentityService struct {
	fingerprints visitor.FingerprintRepository
	stats        visitor.StatsRepository
	salt         string
	logger       *logging.ChanneledLogger
	metrics      *metrics.Registry
	clock        func() time.Time
}

// NewIdentityService creates a new identity service.
func NewIdentityService(
	fingerprints visitor.FingerprintRepository,
	stats visitor.StatsRepository,
	salt string,
	logger *logging.ChanneledLogger,
	m *metrics.Registry,
) *IdentityService {
	return &IdentityService{
		fingerprints: fingerprints,
		stats:        stats,
		salt:         salt,
		logger:       logger,
		metrics:      m,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// Resolve performs the idempotent create-or-update for a fingerprint hash:
// first submission creates the record with one visit, every subsequent one
// increments the visit count and refreshes last-seen metadata. The visit
// count is then merged into the roll-up stats so visit-based achievement
// rules see it.
func (s *IdentityService) Resolve(hash string, userAgent, ip *string, rawMeta any) (*visitor.Fingerprint, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrInvalidRequest)
	}

	now := s.clock()
	fp := &visitor.Fingerprint{
		ID:          security.GenerateULID(),
		Hash:        hash,
		ServerToken: security.DeriveServerToken(hash, s.salt),
		UserAgent:   userAgent,
		IP:          ip,
		FirstSeen:   now,
		LastSeen:    now,
	}
	if rawMeta != nil {
		if encoded, err := json.Marshal(rawMeta); err == nil {
			m := string(encoded)
			fp.Meta = &m
		}
	}

	persisted, err := s.fingerprints.Upsert(fp)
	if err != nil {
		s.logger.Identity().Error("Fingerprint upsert failed", "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Keep stats.visits in step with the fingerprint's counter; the merge is
	// monotonic so racing resolutions cannot regress it.
	if err := s.stats.EnsureExists(persisted.ID); err != nil {
		s.logger.Identity().Error("Stats ensure failed during resolution", "error", err.Error(), "visitorId", persisted.ID)
	} else if err := s.stats.MergeVisits(persisted.ID, persisted.Visits); err != nil {
		s.logger.Identity().Error("Stats visits merge failed", "error", err.Error(), "visitorId", persisted.ID)
	}

	if s.metrics != nil {
		s.metrics.Resolutions.Inc()
	}
	s.logger.Identity().Info("Fingerprint resolved", "visitorId", persisted.ID, "visits", persisted.Visits)
	return persisted, nil
}

// Lookup finds an identity by exactly one of hash or server token. Supplying
// neither (or both missing) is an invalid request; an unknown reference
// returns (nil, nil).
func (s *IdentityService) Lookup(hash, serverToken string) (*visitor.Fingerprint, error) {
	switch {
	case hash != "":
		fp, err := s.fingerprints.FindByHash(hash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fp, nil
	case serverToken != "":
		fp, err := s.fingerprints.FindByServerToken(serverToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fp, nil
	default:
		return nil, fmt.Errorf("%w: provide hash or serverToken", ErrInvalidRequest)
	}
}

// WithClock overrides the time source, for tests.
func (s *IdentityService) WithClock(clock func() time.Time) *IdentityService {
	s.clock = clock
	return s
}
