package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type membershipCounter interface {
	CountMemberships(ctx context.Context, userID string) (int, error)
}

type eventLister interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventView, error)
	CountRSVPs(ctx context.Context, userID string) (int, error)
}

type ballotCounter interface {
	CountVotedBy(ctx context.Context, voterID string) (int, error)
}

type pointsTotaler interface {
	Total(ctx context.Context, studentID string) (int, error)
}

type gpaReader interface {
	Latest(ctx context.Context, studentID string) (*models.GpaRecord, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL            time.Duration
	UpcomingEventsLimit int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Clubs  membershipCounter
	Events eventLister
	Polls  ballotCounter
	Points pointsTotaler
	Gpa    gpaReader
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// DashboardService composes the student landing page.
type DashboardService struct {
	clubs  membershipCounter
	events eventLister
	polls  ballotCounter
	points pointsTotaler
	gpa    gpaReader
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.UpcomingEventsLimit <= 0 {
		cfg.UpcomingEventsLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		clubs:  params.Clubs,
		events: params.Events,
		polls:  params.Polls,
		points: params.Points,
		gpa:    params.Gpa,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Student returns the dashboard of a student and indicates cache utilisation.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*models.StudentDashboard, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	key := dashboardCacheKey(studentID)
	var cached models.StudentDashboard
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, studentID string) (*models.StudentDashboard, error) {
	summary := &models.StudentDashboard{StudentID: studentID}
	now := s.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.clubs.CountMemberships(gctx, studentID)
		summary.TotalClubs = count
		return err
	})
	g.Go(func() error {
		events, err := s.events.List(gctx, models.EventFilter{
			ViewerID:   studentID,
			UpcomingAt: &now,
			Limit:      s.cfg.UpcomingEventsLimit,
		})
		summary.UpcomingEvents = events
		return err
	})
	g.Go(func() error {
		count, err := s.events.CountRSVPs(gctx, studentID)
		summary.RSVPEvents = count
		return err
	})
	g.Go(func() error {
		count, err := s.polls.CountVotedBy(gctx, studentID)
		summary.VotedPolls = count
		return err
	})
	g.Go(func() error {
		total, err := s.points.Total(gctx, studentID)
		summary.PointsTotal = total
		return err
	})
	g.Go(func() error {
		record, err := s.gpa.Latest(gctx, studentID)
		if err != nil {
			return err
		}
		summary.Gpa = record
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compose dashboard")
	}
	if summary.UpcomingEvents == nil {
		summary.UpcomingEvents = []models.EventView{}
	}
	return summary, nil
}
