package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/pkg/grading"
)

type markServiceMock struct {
	submitted dto.MarkRequest
}

func (m *markServiceMock) Submit(ctx context.Context, req dto.MarkRequest, actor *models.JWTClaims) (*models.MarkRecord, error) {
	m.submitted = req
	grade := grading.Lookup(*req.Mark)
	return &models.MarkRecord{StudentID: req.StudentID, RawMark: *req.Mark, Letter: grade.Letter, GradePoint: grade.Point}, nil
}

func (m *markServiceMock) Update(ctx context.Context, id string, req dto.UpdateMarkRequest, actor *models.JWTClaims) (*models.MarkRecord, error) {
	return &models.MarkRecord{ID: id}, nil
}

func (m *markServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return nil
}

func (m *markServiceMock) ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.MarkView, error) {
	return []models.MarkView{}, nil
}

func (m *markServiceMock) GradeTable() []grading.Band {
	return grading.DefaultTable.Bands()
}

type gpaServiceMock struct{}

func (gpaServiceMock) Get(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.GpaRecord, error) {
	return &models.GpaRecord{StudentID: studentID, GPA: 4.5, CGPA: 4.25}, nil
}

func (gpaServiceMock) Recalculate(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	return &models.GpaRecord{StudentID: studentID}, nil
}

func TestMarkHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	marks := &markServiceMock{}
	handler := NewMarkHandler(marks, gpaServiceMock{})

	c, w := newGinContext(http.MethodPost, "/marks", []byte(`{"student_id":"s","course_id":"c","term_id":"t","mark":78}`))
	asUser(c, "lec-1", models.RoleLecturer)
	handler.Submit(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "B+", envelope.Data["letter"])
	assert.Equal(t, 4.5, envelope.Data["grade_point"])
}

func TestMarkHandlerGradeTable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMarkHandler(&markServiceMock{}, gpaServiceMock{})

	c, w := newGinContext(http.MethodGet, "/grades/table", nil)
	handler.GradeTable(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []grading.Band `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data)
	assert.Equal(t, "A+", envelope.Data[0].Letter)
}

func TestMarkHandlerGPA(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMarkHandler(&markServiceMock{}, gpaServiceMock{})
	studentID := "3d8c2b7e-1f0a-4c5b-9e6d-7a8b9c0d1e2f"

	c, w := newGinContext(http.MethodGet, "/students/"+studentID+"/gpa", nil)
	c.Params = gin.Params{{Key: "id", Value: studentID}}
	asUser(c, studentID, models.RoleStudent)
	handler.GPA(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 4.25, envelope.Data["cgpa"])
}
