package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/response"
)

type pollService interface {
	Create(ctx context.Context, req dto.CreatePollRequest, actor *models.JWTClaims) (*models.PollResult, error)
	Get(ctx context.Context, id, viewerID string) (*models.PollResult, error)
	List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error)
	Vote(ctx context.Context, pollID string, req dto.VoteRequest, actor *models.JWTClaims) (*models.PollResult, error)
}

// PollHandler exposes poll endpoints.
type PollHandler struct {
	service pollService
}

// NewPollHandler constructs the handler.
func NewPollHandler(service pollService) *PollHandler {
	return &PollHandler{service: service}
}

// List godoc
// @Summary List polls
// @Tags Polls
// @Produce json
// @Param club_id query string false "Club filter"
// @Success 200 {object} response.Envelope
// @Router /polls [get]
func (h *PollHandler) List(c *gin.Context) {
	polls, err := h.service.List(c.Request.Context(), c.Query("club_id"), queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, polls, nil)
}

// Create godoc
// @Summary Create poll
// @Tags Polls
// @Accept json
// @Produce json
// @Param payload body dto.CreatePollRequest true "Poll payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /polls [post]
func (h *PollHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid poll payload"))
		return
	}
	poll, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, poll)
}

// Get godoc
// @Summary Get poll results
// @Tags Polls
// @Produce json
// @Param id path string true "Poll ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /polls/{id} [get]
func (h *PollHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "poll")
	if !ok {
		return
	}
	poll, err := h.service.Get(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, poll, nil)
}

// Vote godoc
// @Summary Vote in a poll
// @Description One ballot per voter. A second vote is rejected with 409.
// @Tags Polls
// @Accept json
// @Produce json
// @Param id path string true "Poll ID"
// @Param payload body dto.VoteRequest true "Ballot"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /polls/{id}/vote [post]
func (h *PollHandler) Vote(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "poll")
	if !ok {
		return
	}
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vote payload"))
		return
	}
	if _, err := uuid.Parse(req.OptionID); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "option does not belong to this poll"))
		return
	}
	poll, err := h.service.Vote(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, poll, nil)
}
