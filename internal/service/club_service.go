package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type clubRepository interface {
	List(ctx context.Context, filter models.ClubFilter) ([]models.ClubSummary, int, error)
	FindByID(ctx context.Context, id, viewerID string) (*models.ClubSummary, error)
	Create(ctx context.Context, club *models.Club) error
	IsMember(ctx context.Context, clubID, userID string) (bool, error)
	ToggleMembership(ctx context.Context, clubID, userID string) (*models.ToggleResult, error)
}

type postRepository interface {
	ListByClub(ctx context.Context, clubID string, limit int) ([]models.ClubPost, error)
	FindByID(ctx context.Context, id string) (*models.ClubPost, error)
	Create(ctx context.Context, post *models.ClubPost) error
	Delete(ctx context.Context, id string) (string, error)
}

// activityObserver is told whenever club activity counts change.
type activityObserver interface {
	ActivityChanged(ctx context.Context, userID string)
}

// ClubService manages clubs, memberships and club posts.
type ClubService struct {
	clubs     clubRepository
	posts     postRepository
	observer  activityObserver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClubService constructs the service. observer may be nil.
func NewClubService(clubs clubRepository, posts postRepository, observer activityObserver, validate *validator.Validate, logger *zap.Logger) *ClubService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClubService{clubs: clubs, posts: posts, observer: observer, validator: validate, logger: logger}
}

// List returns a page of clubs.
func (s *ClubService) List(ctx context.Context, filter models.ClubFilter) ([]models.ClubSummary, *models.Pagination, error) {
	clubs, total, err := s.clubs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clubs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return clubs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a club as seen by viewerID.
func (s *ClubService) Get(ctx context.Context, id, viewerID string) (*models.ClubSummary, error) {
	club, err := s.clubs.FindByID(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "club not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load club")
	}
	return club, nil
}

// Create registers a new club.
func (s *ClubService) Create(ctx context.Context, req dto.CreateClubRequest, actor *models.JWTClaims) (*models.Club, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid club payload")
	}
	club := &models.Club{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		MeetingTime: req.MeetingTime,
		CreatedBy:   userIDPtr(actor),
	}
	if err := s.clubs.Create(ctx, club); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a club with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create club")
	}
	s.activityChanged(ctx, "")
	return club, nil
}

// ToggleMembership joins or leaves a club. Only students hold memberships.
func (s *ClubService) ToggleMembership(ctx context.Context, clubID string, actor *models.JWTClaims) (*models.ToggleResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can join clubs")
	}
	if _, err := s.Get(ctx, clubID, ""); err != nil {
		return nil, err
	}
	result, err := s.clubs.ToggleMembership(ctx, clubID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle membership")
	}
	s.logger.Info("membership toggled", zap.String("club_id", clubID), zap.String("user_id", actor.UserID), zap.String("state", string(result.State)))
	s.activityChanged(ctx, actor.UserID)
	return result, nil
}

// ListPosts returns the newest posts of a club.
func (s *ClubService) ListPosts(ctx context.Context, clubID string, limit int) ([]models.ClubPost, error) {
	if _, err := s.Get(ctx, clubID, ""); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByClub(ctx, clubID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, nil
}

// CreatePost publishes a post. The author must be a member of the club.
func (s *ClubService) CreatePost(ctx context.Context, clubID string, req dto.CreatePostRequest, actor *models.JWTClaims) (*models.ClubPost, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	club, err := s.Get(ctx, clubID, "")
	if err != nil {
		return nil, err
	}
	member, err := s.clubs.IsMember(ctx, clubID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only club members can post")
	}

	post := &models.ClubPost{
		ClubID:     clubID,
		AuthorID:   actor.UserID,
		AuthorName: actor.FullName,
		ClubName:   club.Name,
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	s.activityChanged(ctx, "")
	return post, nil
}

// DeletePost removes a post.
func (s *ClubService) DeletePost(ctx context.Context, postID string) error {
	if _, err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	s.activityChanged(ctx, "")
	return nil
}

func (s *ClubService) activityChanged(ctx context.Context, userID string) {
	if s.observer != nil {
		s.observer.ActivityChanged(ctx, userID)
	}
}
