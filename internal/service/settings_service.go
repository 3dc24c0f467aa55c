package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/config"
)

type organizationSettingsRepository interface {
	GetSettings(ctx context.Context, id string) (*models.OrgSettings, error)
}

// SettingsService provides per-organization attendance policy. It is the one
// fail-open dependency in the admission pipeline: when the row or the cache
// cannot be read it returns configured defaults, because these knobs classify
// lateness and never gate admission security.
type SettingsService struct {
	repo     organizationSettingsRepository
	cache    *CacheService
	defaults models.OrgSettings
	logger   *zap.Logger
}

// NewSettingsService constructs the settings provider with defaults taken
// from configuration.
func NewSettingsService(repo organizationSettingsRepository, cache *CacheService, cfg config.AttendanceConfig, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := models.OrgSettings{
		LateLimitMinutes: cfg.DefaultLateLimitMinutes,
		StrictLateMode:   cfg.DefaultStrictLateMode,
		UTCOffsetMinutes: cfg.DefaultUTCOffsetMinutes,
	}
	if defaults.LateLimitMinutes <= 0 {
		defaults.LateLimitMinutes = 30
	}
	return &SettingsService{repo: repo, cache: cache, defaults: defaults, logger: logger}
}

// ForOrg returns the organization's attendance policy, falling back to the
// documented defaults on any failure.
func (s *SettingsService) ForOrg(ctx context.Context, orgID string) models.OrgSettings {
	if orgID == "" {
		return s.defaults
	}

	key := fmt.Sprintf("org:settings:%s", orgID)
	if s.cache != nil {
		var cached models.OrgSettings
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached
		}
	}

	settings, err := s.repo.GetSettings(ctx, orgID)
	if err != nil {
		s.logger.Warn("organization settings unavailable, using defaults",
			zap.String("org_id", orgID), zap.Error(err))
		return s.defaults
	}
	if settings.LateLimitMinutes <= 0 {
		settings.LateLimitMinutes = s.defaults.LateLimitMinutes
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, settings, 0); err != nil {
			s.logger.Warn("organization settings cache write failed",
				zap.String("org_id", orgID), zap.Error(err))
		}
	}
	return *settings
}
