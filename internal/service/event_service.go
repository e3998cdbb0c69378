package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventView, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	ToggleRSVP(ctx context.Context, eventID, userID string) (*models.ToggleResult, error)
}

type clubLookup interface {
	FindByID(ctx context.Context, id, viewerID string) (*models.ClubSummary, error)
}

// EventService manages events and RSVPs.
type EventService struct {
	events    eventRepository
	clubs     clubLookup
	observer  activityObserver
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService constructs the service.
func NewEventService(events eventRepository, clubs clubLookup, observer activityObserver, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		events:    events,
		clubs:     clubs,
		observer:  observer,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns events visible to viewerID, optionally only those not yet past.
func (s *EventService) List(ctx context.Context, filter models.EventFilter, upcoming bool) ([]models.EventView, error) {
	if upcoming && filter.UpcomingAt == nil {
		now := s.now().UTC()
		filter.UpcomingAt = &now
	}
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Create schedules an event. Location falls back to DefaultEventLocation.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest, actor *models.JWTClaims) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	date, err := parseEventDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be RFC3339 or YYYY-MM-DD")
	}

	var clubID *string
	if req.ClubID != nil && strings.TrimSpace(*req.ClubID) != "" {
		if _, err := s.clubs.FindByID(ctx, *req.ClubID, ""); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "club not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load club")
		}
		id := *req.ClubID
		clubID = &id
	}

	location := models.DefaultEventLocation
	if req.Location != nil && strings.TrimSpace(*req.Location) != "" {
		location = strings.TrimSpace(*req.Location)
	}

	event := &models.Event{
		ClubID:      clubID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Location:    location,
		Date:        date,
		CreatedBy:   userIDPtr(actor),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.activityChanged(ctx, "")
	return event, nil
}

// ToggleRSVP flips the caller's attendance. Any role may RSVP.
func (s *EventService) ToggleRSVP(ctx context.Context, eventID string, actor *models.JWTClaims) (*models.ToggleResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	result, err := s.events.ToggleRSVP(ctx, eventID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle rsvp")
	}
	s.activityChanged(ctx, actor.UserID)
	return result, nil
}

func (s *EventService) activityChanged(ctx context.Context, userID string) {
	if s.observer != nil {
		s.observer.ActivityChanged(ctx, userID)
	}
}

func parseEventDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
