package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/grading"
	"github.com/noah-isme/student-clubs-api/pkg/response"
)

type markService interface {
	Submit(ctx context.Context, req dto.MarkRequest, actor *models.JWTClaims) (*models.MarkRecord, error)
	Update(ctx context.Context, id string, req dto.UpdateMarkRequest, actor *models.JWTClaims) (*models.MarkRecord, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.MarkView, error)
	GradeTable() []grading.Band
}

type gpaService interface {
	Get(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.GpaRecord, error)
	Recalculate(ctx context.Context, studentID string) (*models.GpaRecord, error)
}

// MarkHandler exposes mark, grade table and GPA endpoints.
type MarkHandler struct {
	marks markService
	gpa   gpaService
}

// NewMarkHandler constructs the handler.
func NewMarkHandler(marks markService, gpa gpaService) *MarkHandler {
	return &MarkHandler{marks: marks, gpa: gpa}
}

// Submit godoc
// @Summary Record a mark
// @Description Creates or replaces the student's mark for the course. Grade fields are derived.
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body dto.MarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /marks [post]
func (h *MarkHandler) Submit(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}
	mark, err := h.marks.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Update godoc
// @Summary Update a mark
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Mark ID"
// @Param payload body dto.UpdateMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /marks/{id} [put]
func (h *MarkHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "mark")
	if !ok {
		return
	}
	var req dto.UpdateMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}
	mark, err := h.marks.Update(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete a mark
// @Tags Marks
// @Param id path string true "Mark ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /marks/{id} [delete]
func (h *MarkHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "mark")
	if !ok {
		return
	}
	if err := h.marks.Delete(c.Request.Context(), id, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentMarks godoc
// @Summary List a student's marks
// @Tags Marks
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/marks [get]
func (h *MarkHandler) StudentMarks(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "student")
	if !ok {
		return
	}
	marks, err := h.marks.ListByStudent(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// GradeTable godoc
// @Summary Grade bands
// @Tags Marks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades/table [get]
func (h *MarkHandler) GradeTable(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.marks.GradeTable(), nil)
}

// GPA godoc
// @Summary Student GPA and CGPA
// @Tags GPA
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *MarkHandler) GPA(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "student")
	if !ok {
		return
	}
	record, err := h.gpa.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RecalculateGPA godoc
// @Summary Recompute GPA from stored marks
// @Tags GPA
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa/recalculate [post]
func (h *MarkHandler) RecalculateGPA(c *gin.Context) {
	id, ok := pathID(c, "id", "student")
	if !ok {
		return
	}
	record, err := h.gpa.Recalculate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
