package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

const markViewSelect = `SELECT m.id, m.student_id, m.course_id, m.term_id, m.raw_mark, m.credit_units, m.grade_point, m.letter, m.remark,
m.recorded_by, m.created_at, m.updated_at,
c.code AS course_code, c.name AS course_name, t.name AS term_name, t.start_date AS term_start_date
FROM student_marks m
JOIN courses c ON c.id = m.course_id
JOIN terms t ON t.id = m.term_id`

// MarkRepository persists student marks.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Upsert writes the mark for (student, course), replacing any previous one.
// ID and CreatedAt are refreshed from the stored row. exec is the caller's
// transaction, or nil for the repository's own pool.
func (r *MarkRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, mark *models.MarkRecord) error {
	if exec == nil {
		exec = r.db
	}
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	mark.CreatedAt = now
	mark.UpdatedAt = now
	const query = `INSERT INTO student_marks (id, student_id, course_id, term_id, raw_mark, credit_units, grade_point, letter, remark, recorded_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (student_id, course_id) DO UPDATE SET
term_id = EXCLUDED.term_id, raw_mark = EXCLUDED.raw_mark, credit_units = EXCLUDED.credit_units,
grade_point = EXCLUDED.grade_point, letter = EXCLUDED.letter, remark = EXCLUDED.remark,
recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := exec.QueryRowxContext(ctx, query,
		mark.ID, mark.StudentID, mark.CourseID, mark.TermID, mark.RawMark, mark.CreditUnits,
		mark.GradePoint, mark.Letter, mark.Remark, mark.RecordedBy, mark.CreatedAt, mark.UpdatedAt)
	if err := row.Scan(&mark.ID, &mark.CreatedAt); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	return nil
}

// FindByID returns a single mark.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.MarkRecord, error) {
	const query = `SELECT id, student_id, course_id, term_id, raw_mark, credit_units, grade_point, letter, remark, recorded_by, created_at, updated_at
FROM student_marks WHERE id = $1`
	var mark models.MarkRecord
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find mark: %w", err)
	}
	return &mark, nil
}

// Delete removes a mark and returns the student it belonged to.
func (r *MarkRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) (string, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `DELETE FROM student_marks WHERE id = $1 RETURNING student_id`
	var studentID string
	if err := sqlx.GetContext(ctx, exec, &studentID, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("delete mark: %w", err)
	}
	return studentID, nil
}

// ListByStudent returns a student's marks ordered by term then course code.
func (r *MarkRepository) ListByStudent(ctx context.Context, studentID string) ([]models.MarkView, error) {
	query := markViewSelect + ` WHERE m.student_id = $1 ORDER BY t.start_date, c.code`
	var marks []models.MarkView
	if err := r.db.SelectContext(ctx, &marks, query, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	return marks, nil
}

// ListAll returns every mark for exports.
func (r *MarkRepository) ListAll(ctx context.Context) ([]models.MarkView, error) {
	query := markViewSelect + ` ORDER BY m.student_id, t.start_date, c.code`
	var marks []models.MarkView
	if err := r.db.SelectContext(ctx, &marks, query); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}
