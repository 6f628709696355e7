package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type dashboardRepository interface {
	Counts(ctx context.Context, yearID string) (*models.DashboardCounts, error)
}

// DashboardService serves headline counts, caching per academic year.
type DashboardService struct {
	repo     dashboardRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService instantiates DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Counts returns dashboard totals for one year. The second return value
// reports whether the payload came from cache.
func (s *DashboardService) Counts(ctx context.Context, yearID string) (*models.DashboardCounts, bool, error) {
	if yearID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "academic year id is required")
	}

	key := dashboardCacheKey(yearID)
	var cached models.DashboardCounts
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	counts, err := s.repo.Counts(ctx, yearID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counts")
	}

	if err := s.cache.Set(ctx, key, counts, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return counts, false, nil
}

// Invalidate drops cached counts for one year, or every year when yearID is
// empty.
func (s *DashboardService) Invalidate(ctx context.Context, yearID string) error {
	pattern := "dashboard:counts:*"
	if yearID != "" {
		pattern = dashboardCacheKey(yearID)
	}
	return s.cache.Invalidate(ctx, pattern)
}

func dashboardCacheKey(yearID string) string {
	return fmt.Sprintf("dashboard:counts:%s", yearID)
}
