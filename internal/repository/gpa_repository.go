package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/pkg/database"
	"github.com/noah-isme/student-clubs-api/pkg/grading"
)

// StandingFunc derives gpa and cgpa from marks grouped per term in
// chronological order.
type StandingFunc func(terms [][]grading.Entry) (gpa, cgpa float64)

// GpaRepository persists the derived GPA record of each student.
type GpaRepository struct {
	db *sqlx.DB
}

// NewGpaRepository constructs the repository.
func NewGpaRepository(db *sqlx.DB) *GpaRepository {
	return &GpaRepository{db: db}
}

// GetOrCreate returns the student's record, inserting a zeroed one first if
// none exists yet.
func (r *GpaRepository) GetOrCreate(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	const insert = `INSERT INTO student_gpa (student_id, gpa, cgpa, updated_at) VALUES ($1, 0, 0, $2) ON CONFLICT (student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, studentID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("init gpa record: %w", err)
	}
	const query = `SELECT student_id, gpa, cgpa, updated_at FROM student_gpa WHERE student_id = $1`
	var record models.GpaRecord
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		return nil, fmt.Errorf("get gpa record: %w", err)
	}
	return &record, nil
}

// Find returns the stored record without creating one.
func (r *GpaRepository) Find(ctx context.Context, studentID string) (*models.GpaRecord, error) {
	const query = `SELECT student_id, gpa, cgpa, updated_at FROM student_gpa WHERE student_id = $1`
	var record models.GpaRecord
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find gpa record: %w", err)
	}
	return &record, nil
}

type termEntry struct {
	TermID      string  `db:"term_id"`
	GradePoint  float64 `db:"grade_point"`
	CreditUnits int     `db:"credit_units"`
}

// Recompute rebuilds the student's record from their current marks in a
// transaction of its own.
func (r *GpaRepository) Recompute(ctx context.Context, studentID string, standing StandingFunc) (*models.GpaRecord, error) {
	var record *models.GpaRecord
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		record, err = r.RecomputeWith(ctx, tx, studentID, standing)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecomputeWith rebuilds the record using exec, which must be a transaction:
// the record's row lock is held until it ends, and marks written earlier in
// the same transaction are included.
func (r *GpaRepository) RecomputeWith(ctx context.Context, exec sqlx.ExtContext, studentID string, standing StandingFunc) (*models.GpaRecord, error) {
	record := &models.GpaRecord{StudentID: studentID}
	now := time.Now().UTC()
	const insert = `INSERT INTO student_gpa (student_id, gpa, cgpa, updated_at) VALUES ($1, 0, 0, $2) ON CONFLICT (student_id) DO NOTHING`
	if _, err := exec.ExecContext(ctx, insert, studentID, now); err != nil {
		return nil, fmt.Errorf("init gpa record: %w", err)
	}
	const lock = `SELECT student_id FROM student_gpa WHERE student_id = $1 FOR UPDATE`
	var locked string
	if err := sqlx.GetContext(ctx, exec, &locked, lock, studentID); err != nil {
		return nil, fmt.Errorf("lock gpa record: %w", err)
	}

	const marks = `SELECT m.term_id, m.grade_point, m.credit_units FROM student_marks m
JOIN terms t ON t.id = m.term_id WHERE m.student_id = $1 ORDER BY t.start_date, m.term_id`
	var rows []termEntry
	if err := sqlx.SelectContext(ctx, exec, &rows, marks, studentID); err != nil {
		return nil, fmt.Errorf("load marks for gpa: %w", err)
	}
	record.GPA, record.CGPA = standing(groupByTerm(rows))
	record.UpdatedAt = now

	const update = `UPDATE student_gpa SET gpa = $2, cgpa = $3, updated_at = $4 WHERE student_id = $1`
	if _, err := exec.ExecContext(ctx, update, studentID, record.GPA, record.CGPA, now); err != nil {
		return nil, fmt.Errorf("update gpa record: %w", err)
	}
	return record, nil
}

// groupByTerm splits rows already sorted by term into consecutive groups.
func groupByTerm(rows []termEntry) [][]grading.Entry {
	var terms [][]grading.Entry
	current := ""
	for i, row := range rows {
		if i == 0 || row.TermID != current {
			terms = append(terms, nil)
			current = row.TermID
		}
		last := len(terms) - 1
		terms[last] = append(terms[last], grading.Entry{GradePoint: row.GradePoint, CreditUnits: row.CreditUnits})
	}
	return terms
}
