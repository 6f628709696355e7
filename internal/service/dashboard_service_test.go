package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type stubDashboardRepo struct {
	counts *models.DashboardCounts
	calls  int
}

func (s *stubDashboardRepo) Counts(ctx context.Context, yearID string) (*models.DashboardCounts, error) {
	s.calls++
	return s.counts, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = make(map[string][]byte)
	return nil
}

func TestDashboardServiceCountsCachesPerYear(t *testing.T) {
	repo := &stubDashboardRepo{counts: &models.DashboardCounts{Students: 120, Teachers: 9, Classes: 6, Subjects: 11, ScheduleEntries: 180}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, time.Minute, nil)

	counts, cached, err := svc.Counts(context.Background(), "y1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 120, counts.Students)
	assert.Equal(t, 1, repo.calls)

	counts, cached, err = svc.Counts(context.Background(), "y1")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 120, counts.Students)
	assert.Equal(t, 1, repo.calls)

	_, cached, err = svc.Counts(context.Background(), "y2")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardServiceCountsWithoutCache(t *testing.T) {
	repo := &stubDashboardRepo{counts: &models.DashboardCounts{Students: 10}}
	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	svc := NewDashboardService(repo, cache, time.Minute, nil)

	_, cached, err := svc.Counts(context.Background(), "y1")
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = svc.Counts(context.Background(), "y1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardServiceCountsRequiresYear(t *testing.T) {
	svc := NewDashboardService(&stubDashboardRepo{}, nil, time.Minute, nil)

	_, _, err := svc.Counts(context.Background(), "")
	require.Error(t, err)
}

func TestDashboardServiceInvalidate(t *testing.T) {
	repo := &stubDashboardRepo{counts: &models.DashboardCounts{Students: 5}}
	mem := newMemoryCacheRepo()
	cache := NewCacheService(mem, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, time.Minute, nil)

	_, _, err := svc.Counts(context.Background(), "y1")
	require.NoError(t, err)
	require.NotEmpty(t, mem.entries)

	require.NoError(t, svc.Invalidate(context.Background(), ""))
	assert.Empty(t, mem.entries)
}
