package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/grading"
)

// markRepoStub keeps one record per (student, course) like the unique index.
type markRepoStub struct {
	records map[string]*models.MarkRecord
	seq     int
}

func newMarkRepoStub() *markRepoStub {
	return &markRepoStub{records: map[string]*models.MarkRecord{}}
}

func (s *markRepoStub) Upsert(ctx context.Context, exec sqlx.ExtContext, mark *models.MarkRecord) error {
	for _, r := range s.records {
		if r.StudentID == mark.StudentID && r.CourseID == mark.CourseID {
			mark.ID = r.ID
			stored := *mark
			s.records[r.ID] = &stored
			return nil
		}
	}
	s.seq++
	mark.ID = fmt.Sprintf("mark-%d", s.seq)
	stored := *mark
	s.records[mark.ID] = &stored
	return nil
}

func (s *markRepoStub) FindByID(ctx context.Context, id string) (*models.MarkRecord, error) {
	if r, ok := s.records[id]; ok {
		view := *r
		return &view, nil
	}
	return nil, sql.ErrNoRows
}

func (s *markRepoStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) (string, error) {
	r, ok := s.records[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	delete(s.records, id)
	return r.StudentID, nil
}

func (s *markRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.MarkView, error) {
	var out []models.MarkView
	for _, r := range s.records {
		if r.StudentID == studentID {
			out = append(out, models.MarkView{MarkRecord: *r})
		}
	}
	return out, nil
}

// gpaRepoStub recomputes from the mark stub, terms ordered by id.
type gpaRepoStub struct {
	marks   *markRepoStub
	records map[string]*models.GpaRecord
	fail    error
	calls   int
}

func (s *gpaRepoStub) GetOrCreate(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	if s.records == nil {
		s.records = map[string]*models.GpaRecord{}
	}
	if r, ok := s.records[studentID]; ok {
		return r, nil
	}
	s.records[studentID] = &models.GpaRecord{StudentID: studentID}
	return s.records[studentID], nil
}

func (s *gpaRepoStub) Find(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	if r, ok := s.records[studentID]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gpaRepoStub) Recompute(ctx context.Context, studentID string, standing repository.StandingFunc) (*models.GpaRecord, error) {
	return s.RecomputeWith(ctx, nil, studentID, standing)
}

func (s *gpaRepoStub) RecomputeWith(ctx context.Context, exec sqlx.ExtContext, studentID string, standing repository.StandingFunc) (*models.GpaRecord, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	byTerm := map[string][]grading.Entry{}
	var termIDs []string
	for _, r := range s.marks.records {
		if r.StudentID != studentID {
			continue
		}
		if _, ok := byTerm[r.TermID]; !ok {
			termIDs = append(termIDs, r.TermID)
		}
		byTerm[r.TermID] = append(byTerm[r.TermID], grading.Entry{GradePoint: r.GradePoint, CreditUnits: r.CreditUnits})
	}
	sort.Strings(termIDs)
	terms := make([][]grading.Entry, 0, len(termIDs))
	for _, id := range termIDs {
		terms = append(terms, byTerm[id])
	}
	record, _ := s.GetOrCreate(ctx, studentID)
	record.GPA, record.CGPA = standing(terms)
	return record, nil
}

// txStub restores both stubs when the transaction body fails.
type txStub struct {
	marks *markRepoStub
	gpa   *gpaRepoStub
	runs  int
}

func (s *txStub) WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	s.runs++
	marks := map[string]models.MarkRecord{}
	for id, r := range s.marks.records {
		marks[id] = *r
	}
	seq := s.marks.seq
	records := map[string]models.GpaRecord{}
	for id, r := range s.gpa.records {
		records[id] = *r
	}

	err := fn(nil)
	if err == nil {
		return nil
	}
	s.marks.records = map[string]*models.MarkRecord{}
	for id, r := range marks {
		r := r
		s.marks.records[id] = &r
	}
	s.marks.seq = seq
	s.gpa.records = map[string]*models.GpaRecord{}
	for id, r := range records {
		r := r
		s.gpa.records[id] = &r
	}
	return err
}

type markFixture struct {
	svc   *MarkService
	marks *markRepoStub
	gpa   *gpaRepoStub
	tx    *txStub
	audit *auditStub
}

func newMarkFixture() *markFixture {
	marks := newMarkRepoStub()
	users := newUUIDUserFixture()
	gpa := &gpaRepoStub{marks: marks}
	tx := &txStub{marks: marks, gpa: gpa}
	audit := &auditStub{}
	terms := &termRepoStub{terms: map[string]*models.Term{
		fallTermUUID:   {ID: fallTermUUID, Name: "Fall"},
		springTermUUID: {ID: springTermUUID, Name: "Spring"},
	}}
	courses := &courseRepoStub{courses: map[string]*models.Course{
		calculusUUID: {ID: calculusUUID, Code: "MTH101", Name: "Calculus", CreditUnits: 3},
		physicsUUID:  {ID: physicsUUID, Code: "PHY101", Name: "Physics", CreditUnits: 2},
	}}
	svc := NewMarkService(MarkServiceDeps{
		Marks:   marks,
		Tx:      tx,
		Courses: courses,
		Terms:   terms,
		Users:   users,
		Audit:   audit,
		Hook:    NewGpaService(gpa, users, nil, nil, nil),
		Metrics: NewMetricsService(),
	})
	return &markFixture{svc: svc, marks: marks, gpa: gpa, tx: tx, audit: audit}
}

func markReq(course, term string, mark float64) dto.MarkRequest {
	return dto.MarkRequest{StudentID: studentUUID, CourseID: course, TermID: term, Mark: &mark}
}

func TestMarkServiceSubmitDerivesGrade(t *testing.T) {
	f := newMarkFixture()

	mark, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 72), lecturer)
	require.NoError(t, err)
	assert.Equal(t, 4.0, mark.GradePoint)
	assert.Equal(t, "B", mark.Letter)
	assert.Equal(t, "Good", mark.Remark)
	assert.Equal(t, 3, mark.CreditUnits)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionMarkUpsert, f.audit.logs[0].Action)
	assert.Equal(t, 1, f.tx.runs)

	assert.Equal(t, 4.0, f.gpa.records[studentUUID].GPA)
	assert.Equal(t, 4.0, f.gpa.records[studentUUID].CGPA)
}

func TestMarkServiceGradesStoredPrecision(t *testing.T) {
	f := newMarkFixture()

	// Stored as 40.00, so the grade must be the one for 40.
	mark, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 39.995), lecturer)
	require.NoError(t, err)
	assert.Equal(t, 40.0, mark.RawMark)
	assert.Equal(t, "F", mark.Letter)
	assert.Equal(t, 1.0, mark.GradePoint)
	assert.Equal(t, 40.0, f.marks.records[mark.ID].RawMark)

	mark, err = f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 39.994), lecturer)
	require.NoError(t, err)
	assert.Equal(t, 39.99, mark.RawMark)
	assert.Equal(t, "F", mark.Letter)
	assert.Equal(t, 0.0, mark.GradePoint)
}

func TestMarkServiceSubmitReplacesExisting(t *testing.T) {
	f := newMarkFixture()

	first, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 40), lecturer)
	require.NoError(t, err)
	second, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 91), lecturer)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.marks.records, 1)
	assert.Equal(t, "A+", f.marks.records[first.ID].Letter)
	assert.Equal(t, 5.0, f.gpa.records[studentUUID].CGPA)
}

func TestMarkServiceGpaAcrossTerms(t *testing.T) {
	f := newMarkFixture()

	// fall: 3 credits at 5.0; spring: 2 credits at 2.0
	_, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 85), lecturer)
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), markReq(physicsUUID, springTermUUID, 50), lecturer)
	require.NoError(t, err)

	record := f.gpa.records[studentUUID]
	assert.Equal(t, 2.0, record.GPA)
	assert.Equal(t, 3.8, record.CGPA)

	for id, r := range f.marks.records {
		if r.CourseID == physicsUUID {
			require.NoError(t, f.svc.Delete(context.Background(), id, lecturer))
		}
	}
	assert.Equal(t, 5.0, f.gpa.records[studentUUID].GPA)
	assert.Equal(t, 5.0, f.gpa.records[studentUUID].CGPA)
}

func TestMarkServiceSubmitValidation(t *testing.T) {
	f := newMarkFixture()

	_, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 101), lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, -1), lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(context.Background(), dto.MarkRequest{StudentID: studentUUID, CourseID: calculusUUID, TermID: fallTermUUID}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(context.Background(), markReq(missingUUID, fallTermUUID, 60), lecturer)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	req := markReq(calculusUUID, fallTermUUID, 60)
	req.StudentID = lecturerUUID
	_, err = f.svc.Submit(context.Background(), req, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.marks.records)
	assert.Zero(t, f.tx.runs)
}

func TestMarkServiceRejectsMalformedIDs(t *testing.T) {
	f := newMarkFixture()

	// "1" is a real student in the user fixture but not a uuid.
	for _, req := range []dto.MarkRequest{
		{StudentID: "1", CourseID: calculusUUID, TermID: fallTermUUID},
		{StudentID: studentUUID, CourseID: "MTH101", TermID: fallTermUUID},
		{StudentID: studentUUID, CourseID: calculusUUID, TermID: "fall"},
	} {
		value := 70.0
		req.Mark = &value
		_, err := f.svc.Submit(context.Background(), req, lecturer)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "%+v", req)
	}
	assert.Empty(t, f.marks.records)
}

func TestMarkServiceHookFailureRollsBackWrite(t *testing.T) {
	f := newMarkFixture()
	first, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 90), lecturer)
	require.NoError(t, err)
	require.Len(t, f.audit.logs, 1)

	f.gpa.fail = errors.New("deadlock detected")

	_, err = f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 30), lecturer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 90.0, f.marks.records[first.ID].RawMark)
	assert.Equal(t, "A+", f.marks.records[first.ID].Letter)
	assert.Equal(t, 5.0, f.gpa.records[studentUUID].CGPA)

	_, err = f.svc.Submit(context.Background(), markReq(physicsUUID, springTermUUID, 30), lecturer)
	require.Error(t, err)
	assert.Len(t, f.marks.records, 1)

	err = f.svc.Delete(context.Background(), first.ID, lecturer)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Contains(t, f.marks.records, first.ID)
	assert.Equal(t, 5.0, f.gpa.records[studentUUID].CGPA)

	// Rolled back writes leave no audit trail.
	assert.Len(t, f.audit.logs, 1)
	assert.Equal(t, 4, f.gpa.calls)
}

func TestMarkServiceUpdateAndDelete(t *testing.T) {
	f := newMarkFixture()
	mark, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 55), lecturer)
	require.NoError(t, err)

	value := 66.0
	term := springTermUUID
	updated, err := f.svc.Update(context.Background(), mark.ID, dto.UpdateMarkRequest{Mark: &value, TermID: &term}, lecturer)
	require.NoError(t, err)
	assert.Equal(t, "C+", updated.Letter)
	assert.Equal(t, springTermUUID, f.marks.records[mark.ID].TermID)

	missingTerm := missingUUID
	_, err = f.svc.Update(context.Background(), mark.ID, dto.UpdateMarkRequest{Mark: &value, TermID: &missingTerm}, lecturer)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	malformed := "term-2"
	_, err = f.svc.Update(context.Background(), mark.ID, dto.UpdateMarkRequest{Mark: &value, TermID: &malformed}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.svc.Delete(context.Background(), mark.ID, lecturer))
	assert.Equal(t, 0.0, f.gpa.records[studentUUID].CGPA)

	err = f.svc.Delete(context.Background(), mark.ID, lecturer)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMarkServiceListByStudentScopesStudents(t *testing.T) {
	f := newMarkFixture()
	_, err := f.svc.Submit(context.Background(), markReq(calculusUUID, fallTermUUID, 80), lecturer)
	require.NoError(t, err)

	self := &models.JWTClaims{UserID: studentUUID, Role: models.RoleStudent}
	marks, err := f.svc.ListByStudent(context.Background(), studentUUID, self)
	require.NoError(t, err)
	assert.Len(t, marks, 1)

	other := &models.JWTClaims{UserID: "3", Role: models.RoleStudent}
	_, err = f.svc.ListByStudent(context.Background(), studentUUID, other)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.svc.ListByStudent(context.Background(), studentUUID, lecturer)
	assert.NoError(t, err)
}
func TestGpaServiceGetCreatesLazily(t *testing.T) {
	users := newUserFixture()
	gpa := &gpaRepoStub{marks: newMarkRepoStub()}
	svc := NewGpaService(gpa, users, nil, nil, nil)

	record, err := svc.Get(context.Background(), "1", lecturer)
	require.NoError(t, err)
	assert.Equal(t, 0.0, record.GPA)
	assert.Contains(t, gpa.records, "1")

	_, err = svc.Get(context.Background(), "1", &models.JWTClaims{UserID: "3", Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "missing", lecturer)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	latest, err := svc.Latest(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, latest)
}
