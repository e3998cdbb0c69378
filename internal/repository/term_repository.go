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

// TermRepository handles persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns terms, most recent first.
func (r *TermRepository) List(ctx context.Context) ([]models.Term, error) {
	const query = `SELECT id, name, start_date, end_date, created_at FROM terms ORDER BY start_date DESC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindByID fetches a term by id.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, start_date, end_date, created_at FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find term: %w", err)
	}
	return &term, nil
}

// Create inserts a term. A duplicate name yields ErrDuplicate.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	term.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO terms (id, name, start_date, end_date, created_at) VALUES (:id, :name, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}
