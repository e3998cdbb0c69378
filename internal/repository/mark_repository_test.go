package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

func TestMarkRepositoryUpsertKeepsExistingID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, course_id) DO UPDATE SET")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "course-1", "term-1", 72.5, 3, 4.0, "B", "Good", "lec-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("mark-existing", created))

	mark := &models.MarkRecord{
		StudentID: "stu-1", CourseID: "course-1", TermID: "term-1",
		RawMark: 72.5, CreditUnits: 3, GradePoint: 4.0, Letter: "B", Remark: "Good",
		RecordedBy: strPtr("lec-1"),
	}
	require.NoError(t, repo.Upsert(context.Background(), nil, mark))

	assert.Equal(t, "mark-existing", mark.ID)
	assert.Equal(t, created, mark.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryDeleteReturnsStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM student_marks WHERE id = $1 RETURNING student_id")).
		WithArgs("mark-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1"))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM student_marks")).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	studentID, err := repo.Delete(context.Background(), nil, "mark-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", studentID)

	_, err = repo.Delete(context.Background(), nil, "gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMarkRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	cols := []string{"id", "student_id", "course_id", "term_id", "raw_mark", "credit_units", "grade_point", "letter", "remark",
		"recorded_by", "created_at", "updated_at", "course_code", "course_name", "term_name", "term_start_date"}
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.student_id = $1 ORDER BY t.start_date, c.code")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "stu-1", "c1", "t1", 81.0, 3, 5.0, "A", "Excellent", nil, now, now, "CS101", "Intro", "Fall", now))

	marks, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "CS101", marks[0].CourseCode)
	assert.Equal(t, "A", marks[0].Letter)
}
