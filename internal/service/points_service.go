package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type pointsRepository interface {
	Create(ctx context.Context, award *models.PointAward) error
	Total(ctx context.Context, studentID string) (int, error)
	ByClub(ctx context.Context, studentID string) ([]models.ClubPoints, error)
	Recent(ctx context.Context, studentID string, limit int) ([]models.PointAward, error)
}

const recentAwardsLimit = 10

// PointsService awards merit points and summarises them per student.
type PointsService struct {
	repo      pointsRepository
	users     userLookup
	clubs     clubLookup
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPointsService constructs the service.
func NewPointsService(repo pointsRepository, users userLookup, clubs clubLookup, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PointsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsService{repo: repo, users: users, clubs: clubs, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Award grants points to a student, optionally on behalf of a club.
func (s *PointsService) Award(ctx context.Context, req dto.AwardPointsRequest, actor *models.JWTClaims) (*models.PointAward, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.ClubID != nil && strings.TrimSpace(*req.ClubID) == "" {
		req.ClubID = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid points payload")
	}
	if err := requireStudent(ctx, s.users, req.StudentID); err != nil {
		return nil, err
	}

	var clubID *string
	if req.ClubID != nil {
		if _, err := s.clubs.FindByID(ctx, *req.ClubID, ""); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "club not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load club")
		}
		id := *req.ClubID
		clubID = &id
	}

	award := &models.PointAward{
		StudentID: req.StudentID,
		ClubID:    clubID,
		AwardedBy: actor.UserID,
		Points:    req.Points,
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Create(ctx, award); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award points")
	}

	if s.audit != nil {
		payload, _ := json.Marshal(award)
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     userIDPtr(actor),
			Action:     models.AuditActionPointsAward,
			Resource:   "points",
			ResourceID: strPtr(award.ID),
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record points audit", zap.Error(err))
		}
	}
	if err := s.cache.Evict(ctx, dashboardCacheKey(req.StudentID)); err != nil {
		s.logger.Warn("failed to evict dashboard cache", zap.String("student_id", req.StudentID), zap.Error(err))
	}
	return award, nil
}

// Summary returns the student's total, per-club breakdown and latest awards.
func (s *PointsService) Summary(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.PointsSummary, error) {
	if actor != nil && actor.Role == models.RoleStudent && actor.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own points")
	}
	summary := &models.PointsSummary{StudentID: studentID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.Total(gctx, studentID)
		summary.Total = total
		return err
	})
	g.Go(func() error {
		byClub, err := s.repo.ByClub(gctx, studentID)
		summary.ByClub = byClub
		return err
	})
	g.Go(func() error {
		recent, err := s.repo.Recent(gctx, studentID, recentAwardsLimit)
		summary.Recent = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load points")
	}
	if summary.ByClub == nil {
		summary.ByClub = []models.ClubPoints{}
	}
	if summary.Recent == nil {
		summary.Recent = []models.PointAward{}
	}
	return summary, nil
}

// Total returns the student's point total.
func (s *PointsService) Total(ctx context.Context, studentID string) (int, error) {
	total, err := s.repo.Total(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load points")
	}
	return total, nil
}
