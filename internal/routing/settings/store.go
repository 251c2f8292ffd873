// Package settings owns the router settings snapshot: validation, caching
// and change notification.
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/platform/apperr"
	"lead_router_backend/platform/logger"
)

// CacheKey is the Redis key holding the current settings.
const CacheKey = "routing:settings"

// CacheTTL bounds how long another replica may serve stale settings.
const CacheTTL = time.Minute

// Cache is a read-through cache for the settings snapshot. Reads fill it
// with SetIfAbsent; only Update overwrites.
type Cache interface {
	Get(ctx context.Context) (domain.RouterSettings, bool, error)
	Set(ctx context.Context, value domain.RouterSettings) error
	SetIfAbsent(ctx context.Context, value domain.RouterSettings) (bool, error)
	Delete(ctx context.Context) error
}

// Update is the operator-facing change request.
type Update struct {
	RegionWeight        int
	PerformanceWeight   int
	FairnessWeight      int
	AutoAssign          bool
	AutoAssignThreshold int
}

// Store serves immutable settings snapshots. Every routing operation reads
// one snapshot up front and uses it throughout.
type Store struct {
	repo      ports.SettingsRepository
	cache     Cache
	publisher events.Publisher
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCache enables the read-through cache.
func WithCache(c Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithPublisher announces settings changes on the bus.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func NewStore(repo ports.SettingsRepository, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{repo: repo, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current settings, creating defaults on first use.
// Cache failures degrade to a repository read.
func (s *Store) Get(ctx context.Context) (domain.RouterSettings, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.WithContext(ctx).Warn("settings cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	current, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.RouterSettings{}, fmt.Errorf("load settings: %w", err)
	}

	// A concurrent Update may have cached a newer snapshot since our read.
	if s.cache != nil {
		if _, err := s.cache.SetIfAbsent(ctx, current); err != nil {
			s.log.WithContext(ctx).Warn("settings cache write failed", "error", err)
		}
	}
	return current, nil
}

// Update validates and persists new settings. Invalid input is rejected
// before anything is written, so the previous settings stay in effect.
func (s *Store) Update(ctx context.Context, in Update, actor string) (domain.RouterSettings, error) {
	next := domain.RouterSettings{
		RegionWeight:        in.RegionWeight,
		PerformanceWeight:   in.PerformanceWeight,
		FairnessWeight:      in.FairnessWeight,
		AutoAssign:          in.AutoAssign,
		AutoAssignThreshold: in.AutoAssignThreshold,
		UpdatedBy:           strings.TrimSpace(actor),
		UpdatedAt:           s.now().UTC(),
	}
	if next.UpdatedBy == "" {
		next.UpdatedBy = "admin"
	}
	if err := Validate(next); err != nil {
		return domain.RouterSettings{}, err
	}

	saved, err := s.repo.SaveSettings(ctx, next)
	if err != nil {
		return domain.RouterSettings{}, fmt.Errorf("save settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, saved); err != nil {
			// Drop the stale entry so the next read goes to the repository.
			s.log.WithContext(ctx).Warn("settings cache refresh failed", "error", err)
			_ = s.cache.Delete(ctx)
		}
	}

	s.log.WithContext(ctx).Info("routing settings updated",
		"region_weight", saved.RegionWeight,
		"performance_weight", saved.PerformanceWeight,
		"fairness_weight", saved.FairnessWeight,
		"auto_assign", saved.AutoAssign,
		"auto_assign_threshold", saved.AutoAssignThreshold,
		"updated_by", saved.UpdatedBy,
	)

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.SettingsUpdated{
			BaseEvent:           events.NewBaseEventAt(saved.UpdatedAt),
			RegionWeight:        saved.RegionWeight,
			PerformanceWeight:   saved.PerformanceWeight,
			FairnessWeight:      saved.FairnessWeight,
			AutoAssign:          saved.AutoAssign,
			AutoAssignThreshold: saved.AutoAssignThreshold,
			UpdatedBy:           saved.UpdatedBy,
		})
	}
	return saved, nil
}

// Validate checks every numeric field is within 0..100.
func Validate(s domain.RouterSettings) error {
	invalid := map[string]int{}
	check := func(name string, v int) {
		if v < 0 || v > 100 {
			invalid[name] = v
		}
	}
	check("regionWeight", s.RegionWeight)
	check("performanceWeight", s.PerformanceWeight)
	check("fairnessWeight", s.FairnessWeight)
	check("autoAssignThreshold", s.AutoAssignThreshold)

	if len(invalid) > 0 {
		return apperr.Configuration("settings values must be between 0 and 100").WithDetails(invalid)
	}
	return nil
}
