package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/grading"
)

type gpaRepository interface {
	GetOrCreate(ctx context.Context, studentID string) (*models.GpaRecord, error)
	Find(ctx context.Context, studentID string) (*models.GpaRecord, error)
	Recompute(ctx context.Context, studentID string, standing repository.StandingFunc) (*models.GpaRecord, error)
	RecomputeWith(ctx context.Context, exec sqlx.ExtContext, studentID string, standing repository.StandingFunc) (*models.GpaRecord, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// GpaService owns the derived GPA record and refreshes it whenever marks
// change.
type GpaService struct {
	repo    gpaRepository
	users   userLookup
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewGpaService constructs the service. cache and metrics may be nil.
func NewGpaService(repo gpaRepository, users userLookup, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *GpaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GpaService{repo: repo, users: users, cache: cache, metrics: metrics, logger: logger}
}

// MarkChanged recomputes the student's GPA record inside the transaction that
// wrote the mark, so a failure here undoes the mark as well.
func (s *GpaService) MarkChanged(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	record, err := s.repo.RecomputeWith(ctx, exec, studentID, grading.Standing)
	s.metrics.IncGpaRecalc(err == nil)
	if err != nil {
		s.logger.Error("gpa recalculation failed", zap.String("student_id", studentID), zap.Error(err))
		return err
	}
	s.logger.Debug("gpa recalculated", zap.String("student_id", studentID), zap.Float64("gpa", record.GPA), zap.Float64("cgpa", record.CGPA))
	return nil
}

// MarkCommitted drops the student's cached dashboard once the new record is
// visible.
func (s *GpaService) MarkCommitted(ctx context.Context, studentID string) {
	s.evictDashboard(ctx, studentID)
}

// Get returns the student's record, creating a zeroed one on first access.
func (s *GpaService) Get(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.GpaRecord, error) {
	if err := s.authorizeStudent(ctx, studentID, actor); err != nil {
		return nil, err
	}
	record, err := s.repo.GetOrCreate(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gpa")
	}
	return record, nil
}

// Latest returns the stored record or nil when none has been created yet.
func (s *GpaService) Latest(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	record, err := s.repo.Find(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gpa")
	}
	return record, nil
}

// Recalculate rebuilds the record on demand.
func (s *GpaService) Recalculate(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	if err := s.authorizeStudent(ctx, studentID, nil); err != nil {
		return nil, err
	}
	record, err := s.recompute(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recalculate gpa")
	}
	return record, nil
}

func (s *GpaService) recompute(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	record, err := s.repo.Recompute(ctx, studentID, grading.Standing)
	s.metrics.IncGpaRecalc(err == nil)
	if err != nil {
		s.logger.Error("gpa recalculation failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	s.evictDashboard(ctx, studentID)
	s.logger.Debug("gpa recalculated", zap.String("student_id", studentID), zap.Float64("gpa", record.GPA), zap.Float64("cgpa", record.CGPA))
	return record, nil
}

func (s *GpaService) evictDashboard(ctx context.Context, studentID string) {
	if err := s.cache.Evict(ctx, dashboardCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to evict dashboard cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

// authorizeStudent checks the id names a student and, for student callers,
// that it is their own.
func (s *GpaService) authorizeStudent(ctx context.Context, studentID string, actor *models.JWTClaims) error {
	if actor != nil && actor.Role == models.RoleStudent && actor.UserID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students can only view their own records")
	}
	return requireStudent(ctx, s.users, studentID)
}

func requireStudent(ctx context.Context, users userLookup, studentID string) error {
	user, err := users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}
	return nil
}
