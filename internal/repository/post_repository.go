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

const postSelect = `SELECT p.id, p.club_id, p.author_id, u.full_name AS author_name, c.name AS club_name, p.title, p.content, p.created_at
FROM club_posts p
JOIN users u ON u.id = p.author_id
JOIN clubs c ON c.id = p.club_id`

// PostRepository persists club posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// ListByClub returns the newest posts of a club first.
func (r *PostRepository) ListByClub(ctx context.Context, clubID string, limit int) ([]models.ClubPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := postSelect + ` WHERE p.club_id = $1 ORDER BY p.created_at DESC LIMIT $2`
	var posts []models.ClubPost
	if err := r.db.SelectContext(ctx, &posts, query, clubID, limit); err != nil {
		return nil, fmt.Errorf("list club posts: %w", err)
	}
	return posts, nil
}

// ListRecent returns the newest posts across every club.
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]models.ClubPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := postSelect + ` ORDER BY p.created_at DESC LIMIT $1`
	var posts []models.ClubPost
	if err := r.db.SelectContext(ctx, &posts, query, limit); err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	return posts, nil
}

// FindByID returns a single post.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.ClubPost, error) {
	query := postSelect + ` WHERE p.id = $1`
	var post models.ClubPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

// Create inserts a post.
func (r *PostRepository) Create(ctx context.Context, post *models.ClubPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO club_posts (id, club_id, author_id, title, content, created_at)
VALUES (:id, :club_id, :author_id, :title, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Delete removes a post and returns the club it belonged to. A missing post
// yields sql.ErrNoRows.
func (r *PostRepository) Delete(ctx context.Context, id string) (string, error) {
	const query = `DELETE FROM club_posts WHERE id = $1 RETURNING club_id`
	var clubID string
	if err := r.db.GetContext(ctx, &clubID, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("delete post: %w", err)
	}
	return clubID, nil
}
