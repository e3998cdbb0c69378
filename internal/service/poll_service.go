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

type pollRepository interface {
	Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error
	FindByID(ctx context.Context, id string) (*models.PollSummary, error)
	Options(ctx context.Context, pollID string) ([]models.PollOptionResult, error)
	List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error)
	HasVoted(ctx context.Context, pollID, voterID string) (bool, error)
	CastVote(ctx context.Context, pollID, optionID, voterID string) error
}

// PollService creates polls and guards ballots.
type PollService struct {
	polls     pollRepository
	clubs     clubLookup
	observer  activityObserver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPollService constructs the service.
func NewPollService(polls pollRepository, clubs clubLookup, observer activityObserver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PollService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollService{polls: polls, clubs: clubs, observer: observer, metrics: metrics, validator: validate, logger: logger}
}

// Create posts a poll to a club. Blank options are dropped and at least two
// must remain.
func (s *PollService) Create(ctx context.Context, req dto.CreatePollRequest, actor *models.JWTClaims) (*models.PollResult, error) {
	req.Question = strings.TrimSpace(req.Question)
	options := make([]models.PollOption, 0, len(req.Options))
	for _, text := range req.Options {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			options = append(options, models.PollOption{Text: trimmed})
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid poll payload")
	}
	if len(options) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a poll needs at least two options")
	}

	club, err := s.clubs.FindByID(ctx, req.ClubID, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "club not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load club")
	}

	poll := &models.Poll{ClubID: req.ClubID, Question: req.Question, CreatedBy: userIDPtr(actor)}
	if err := s.polls.Create(ctx, poll, options); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create poll")
	}
	s.activityChanged(ctx, "")

	result := &models.PollResult{Poll: *poll, ClubName: club.Name, Options: make([]models.PollOptionResult, 0, len(options))}
	for i, opt := range options {
		result.Options = append(result.Options, models.PollOptionResult{ID: opt.ID, Text: opt.Text, Position: i + 1})
	}
	return result, nil
}

// Get returns a poll with its tallies and whether viewerID already voted.
func (s *PollService) Get(ctx context.Context, id, viewerID string) (*models.PollResult, error) {
	summary, err := s.polls.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}
	options, err := s.polls.Options(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll options")
	}
	voted := false
	if viewerID != "" {
		canVote, err := s.canVote(ctx, id, viewerID)
		if err != nil {
			return nil, err
		}
		voted = !canVote
	}

	total := 0
	for _, opt := range options {
		total += opt.Votes
	}
	return &models.PollResult{
		Poll:       summary.Poll,
		ClubName:   summary.ClubName,
		Options:    options,
		TotalVotes: total,
		HasVoted:   voted,
	}, nil
}

// CanVote reports whether voterID may still cast a ballot in the poll. It is
// false once they hold a ballot on any of its options.
func (s *PollService) CanVote(ctx context.Context, pollID, voterID string) (bool, error) {
	if _, err := s.polls.FindByID(ctx, pollID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}
	return s.canVote(ctx, pollID, voterID)
}

func (s *PollService) canVote(ctx context.Context, pollID, voterID string) (bool, error) {
	voted, err := s.polls.HasVoted(ctx, pollID, voterID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ballot state")
	}
	return !voted, nil
}

// List returns the polls of a club, all polls when clubID is empty.
func (s *PollService) List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error) {
	polls, err := s.polls.List(ctx, clubID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list polls")
	}
	return polls, nil
}

// Vote casts the caller's single ballot. A second ballot in the same poll is
// rejected with ErrAlreadyVoted.
func (s *PollService) Vote(ctx context.Context, pollID string, req dto.VoteRequest, actor *models.JWTClaims) (*models.PollResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vote payload")
	}
	if _, err := s.polls.FindByID(ctx, pollID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}

	err := s.polls.CastVote(ctx, pollID, req.OptionID, actor.UserID)
	switch {
	case err == nil:
		s.metrics.IncBallot("accepted")
	case errors.Is(err, repository.ErrAlreadyVoted):
		s.metrics.IncBallot("duplicate")
		return nil, appErrors.Clone(appErrors.ErrAlreadyVoted, "you have already voted in this poll")
	case errors.Is(err, repository.ErrOptionMismatch):
		s.metrics.IncBallot("invalid_option")
		return nil, appErrors.Clone(appErrors.ErrValidation, "option does not belong to this poll")
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cast vote")
	}

	s.logger.Info("ballot cast", zap.String("poll_id", pollID), zap.String("voter_id", actor.UserID))
	s.activityChanged(ctx, actor.UserID)
	return s.Get(ctx, pollID, actor.UserID)
}

func (s *PollService) activityChanged(ctx context.Context, userID string) {
	if s.observer != nil {
		s.observer.ActivityChanged(ctx, userID)
	}
}
