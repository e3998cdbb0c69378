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

type pointsService interface {
	Award(ctx context.Context, req dto.AwardPointsRequest, actor *models.JWTClaims) (*models.PointAward, error)
	Summary(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.PointsSummary, error)
}

// PointsHandler exposes merit point endpoints.
type PointsHandler struct {
	service pointsService
}

// NewPointsHandler constructs the handler.
func NewPointsHandler(service pointsService) *PointsHandler {
	return &PointsHandler{service: service}
}

// Award godoc
// @Summary Award points to a student
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body dto.AwardPointsRequest true "Award payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /points [post]
func (h *PointsHandler) Award(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid points payload"))
		return
	}
	award, err := h.service.Award(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, award)
}

// Summary godoc
// @Summary Student points summary
// @Tags Points
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/points [get]
func (h *PointsHandler) Summary(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "student")
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
