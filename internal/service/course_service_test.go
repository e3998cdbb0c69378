package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type courseRepoStub struct {
	courses map[string]*models.Course
}

func newCourseRepoStub() *courseRepoStub {
	return &courseRepoStub{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Code: "MTH101", Name: "Calculus", CreditUnits: 3},
		"course-2": {ID: "course-2", Code: "PHY101", Name: "Physics", CreditUnits: 2},
	}}
}

func (s *courseRepoStub) List(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	for _, c := range s.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (s *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	for _, c := range s.courses {
		if c.Code == course.Code {
			return repository.ErrDuplicate
		}
	}
	course.ID = "course-new"
	s.courses[course.ID] = course
	return nil
}

type termRepoStub struct {
	terms map[string]*models.Term
}

func (s *termRepoStub) List(ctx context.Context) ([]models.Term, error) {
	var out []models.Term
	for _, t := range s.terms {
		out = append(out, *t)
	}
	return out, nil
}

func (s *termRepoStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := s.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *termRepoStub) Create(ctx context.Context, term *models.Term) error {
	if s.terms == nil {
		s.terms = map[string]*models.Term{}
	}
	term.ID = "term-new"
	s.terms[term.ID] = term
	return nil
}

func TestCourseServiceCreate(t *testing.T) {
	svc := NewCourseService(newCourseRepoStub(), nil, nil)

	course, err := svc.Create(context.Background(), dto.CreateCourseRequest{Code: " chm101 ", Name: "Chemistry", CreditUnits: 4})
	require.NoError(t, err)
	assert.Equal(t, "CHM101", course.Code)

	_, err = svc.Create(context.Background(), dto.CreateCourseRequest{Code: "mth101", Name: "Again", CreditUnits: 3})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateCourseRequest{Code: "BIO", Name: "Biology", CreditUnits: 0})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTermServiceCreateValidatesRange(t *testing.T) {
	svc := NewTermService(&termRepoStub{}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateTermRequest{Name: "Fall", StartDate: "2026-09-01", EndDate: "2026-08-01"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateTermRequest{Name: "Fall", StartDate: "09/01/2026", EndDate: "2026-12-01"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	term, err := svc.Create(context.Background(), dto.CreateTermRequest{Name: " Fall 2026 ", StartDate: "2026-09-01", EndDate: "2026-12-20"})
	require.NoError(t, err)
	assert.Equal(t, "Fall 2026", term.Name)
	assert.Equal(t, 2026, term.StartDate.Year())

	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
