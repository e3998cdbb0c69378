package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

// ClubRepository persists clubs and their memberships.
type ClubRepository struct {
	db *sqlx.DB
}

// NewClubRepository constructs the repository.
func NewClubRepository(db *sqlx.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

// List returns clubs with member counts. ViewerID resolves is_member and
// MemberID restricts the result to clubs that user belongs to.
func (r *ClubRepository) List(ctx context.Context, filter models.ClubFilter) ([]models.ClubSummary, int, error) {
	var args []interface{}
	conditions := []string{"1=1"}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)))
	}
	if filter.MemberID != "" {
		args = append(args, filter.MemberID)
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM club_members mm WHERE mm.club_id = c.id AND mm.user_id = $%d)", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM clubs c WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count clubs: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	listArgs := append(args, filter.ViewerID)
	query := fmt.Sprintf(`SELECT c.id, c.name, c.description, c.meeting_time, c.created_by, c.created_at, c.updated_at,
(SELECT COUNT(*) FROM club_members m WHERE m.club_id = c.id) AS member_count,
EXISTS (SELECT 1 FROM club_members v WHERE v.club_id = c.id AND v.user_id::text = $%d) AS is_member
FROM clubs c WHERE %s ORDER BY c.name ASC LIMIT %d OFFSET %d`, len(listArgs), where, pageSize, (page-1)*pageSize)

	var clubs []models.ClubSummary
	if err := r.db.SelectContext(ctx, &clubs, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list clubs: %w", err)
	}
	return clubs, total, nil
}

// FindByID returns one club with its member count.
func (r *ClubRepository) FindByID(ctx context.Context, id, viewerID string) (*models.ClubSummary, error) {
	const query = `SELECT c.id, c.name, c.description, c.meeting_time, c.created_by, c.created_at, c.updated_at,
(SELECT COUNT(*) FROM club_members m WHERE m.club_id = c.id) AS member_count,
EXISTS (SELECT 1 FROM club_members v WHERE v.club_id = c.id AND v.user_id::text = $2) AS is_member
FROM clubs c WHERE c.id = $1`
	var club models.ClubSummary
	if err := r.db.GetContext(ctx, &club, query, id, viewerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find club: %w", err)
	}
	return &club, nil
}

// Create inserts a club. A taken name yields ErrDuplicate.
func (r *ClubRepository) Create(ctx context.Context, club *models.Club) error {
	if club.ID == "" {
		club.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	club.CreatedAt = now
	club.UpdatedAt = now
	const query = `INSERT INTO clubs (id, name, description, meeting_time, created_by, created_at, updated_at)
VALUES (:id, :name, :description, :meeting_time, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, club); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create club: %w", err)
	}
	return nil
}

// IsMember reports whether userID belongs to clubID.
func (r *ClubRepository) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM club_members WHERE club_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, clubID, userID); err != nil {
		return false, fmt.Errorf("check club membership: %w", err)
	}
	return ok, nil
}

// ToggleMembership flips userID's membership of clubID.
func (r *ClubRepository) ToggleMembership(ctx context.Context, clubID, userID string) (*models.ToggleResult, error) {
	return toggle(ctx, r.db, membershipRelation, clubID, userID)
}

// CountMemberships returns how many clubs userID has joined.
func (r *ClubRepository) CountMemberships(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM club_members WHERE user_id = $1`
	var n int
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count memberships: %w", err)
	}
	return n, nil
}
