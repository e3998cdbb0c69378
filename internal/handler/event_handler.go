package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, filter models.EventFilter, upcoming bool) ([]models.EventView, error)
	Create(ctx context.Context, req dto.CreateEventRequest, actor *models.JWTClaims) (*models.Event, error)
	ToggleRSVP(ctx context.Context, eventID string, actor *models.JWTClaims) (*models.ToggleResult, error)
}

// EventHandler exposes event endpoints.
type EventHandler struct {
	service eventService
}

// NewEventHandler constructs the handler.
func NewEventHandler(service eventService) *EventHandler {
	return &EventHandler{service: service}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param upcoming query bool false "Only events from now on"
// @Param club_id query string false "Club filter"
// @Param limit query int false "Maximum events"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	filter := models.EventFilter{
		ClubID:   c.Query("club_id"),
		ViewerID: claims.UserID,
		Limit:    queryInt(c, "limit", 50),
	}
	events, err := h.service.List(c.Request.Context(), filter, c.Query("upcoming") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// ToggleRSVP godoc
// @Summary RSVP to an event or withdraw
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/rsvp [post]
func (h *EventHandler) ToggleRSVP(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "event")
	if !ok {
		return
	}
	result, err := h.service.ToggleRSVP(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
