package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/student-clubs-api/pkg/cache"
	"github.com/noah-isme/student-clubs-api/pkg/engagement"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type engagementCounter interface {
	ClubCounts(ctx context.Context) ([]engagement.Counts, error)
}

var engagementCacheKey = cache.Key("engagement", "ranked")

func dashboardCacheKey(studentID string) string {
	return cache.Key("dashboard", "student", studentID)
}

// EngagementService scores clubs from live activity counts. Results are
// cached and concurrent cold reads share one computation.
type EngagementService struct {
	repo   engagementCounter
	cache  *CacheService
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger

	// generation is bumped on every activity change. A ranking computed
	// across a bump is returned but not cached.
	generation atomic.Uint64
}

// NewEngagementService constructs the service. cache may be nil.
func NewEngagementService(repo engagementCounter, cacheSvc *CacheService, ttl time.Duration, logger *zap.Logger) *EngagementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementService{repo: repo, cache: cacheSvc, ttl: ttl, logger: logger}
}

// Ranked returns every club's snapshot ordered by engagement percentage.
func (s *EngagementService) Ranked(ctx context.Context) ([]engagement.Snapshot, error) {
	var cached []engagement.Snapshot
	if hit, err := s.cache.Get(ctx, engagementCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	v, err, _ := s.group.Do(engagementCacheKey, func() (interface{}, error) {
		gen := s.generation.Load()
		counts, err := s.repo.ClubCounts(ctx)
		if err != nil {
			return nil, err
		}
		snapshots := engagement.Ranked(counts)
		if s.generation.Load() != gen {
			s.logger.Debug("engagement ranking went stale while computing, not caching")
			return snapshots, nil
		}
		if err := s.cache.Set(ctx, engagementCacheKey, snapshots, s.ttl); err != nil {
			s.logger.Warn("failed to cache engagement ranking", zap.Error(err))
		}
		return snapshots, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute engagement")
	}
	return v.([]engagement.Snapshot), nil
}

// ActivityChanged drops cached figures affected by a membership, RSVP, post,
// event or poll change made by userID. An empty userID means the change is
// visible to everyone, so all student dashboards are dropped.
func (s *EngagementService) ActivityChanged(ctx context.Context, userID string) {
	s.generation.Add(1)
	s.group.Forget(engagementCacheKey)
	keys := []string{engagementCacheKey}
	if userID != "" {
		keys = append(keys, dashboardCacheKey(userID))
	}
	if err := s.cache.Evict(ctx, keys...); err != nil {
		s.logger.Warn("failed to evict activity caches", zap.Error(err))
	}
	if userID == "" {
		// A new event changes every student's upcoming list.
		if err := s.cache.Invalidate(ctx, dashboardCacheKey("*")); err != nil {
			s.logger.Warn("failed to invalidate dashboards", zap.Error(err))
		}
	}
}
