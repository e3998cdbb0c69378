package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

// PointsRepository persists merit point awards.
type PointsRepository struct {
	db *sqlx.DB
}

// NewPointsRepository constructs the repository.
func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// Create inserts an award.
func (r *PointsRepository) Create(ctx context.Context, award *models.PointAward) error {
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	award.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO student_points (id, student_id, club_id, awarded_by, points, reason, created_at)
VALUES (:id, :student_id, :club_id, :awarded_by, :points, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, award); err != nil {
		return fmt.Errorf("create points award: %w", err)
	}
	return nil
}

// Total returns the sum of a student's awards.
func (r *PointsRepository) Total(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(points), 0) FROM student_points WHERE student_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID); err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

// ByClub returns per-club subtotals, awards without a club grouped under a
// nil club id.
func (r *PointsRepository) ByClub(ctx context.Context, studentID string) ([]models.ClubPoints, error) {
	const query = `SELECT p.club_id, COALESCE(c.name, 'General') AS club_name, SUM(p.points) AS points
FROM student_points p LEFT JOIN clubs c ON c.id = p.club_id
WHERE p.student_id = $1 GROUP BY p.club_id, c.name ORDER BY points DESC`
	var rows []models.ClubPoints
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("points by club: %w", err)
	}
	return rows, nil
}

// Recent returns the newest awards of a student.
func (r *PointsRepository) Recent(ctx context.Context, studentID string, limit int) ([]models.PointAward, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const query = `SELECT id, student_id, club_id, awarded_by, points, reason, created_at FROM student_points
WHERE student_id = $1 ORDER BY created_at DESC LIMIT $2`
	var awards []models.PointAward
	if err := r.db.SelectContext(ctx, &awards, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("recent points: %w", err)
	}
	return awards, nil
}
