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

// EventRepository persists events and RSVPs.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events ordered by date with attendee counts. ViewerID resolves
// attending, AttendeeID restricts to events that user RSVPed to.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.EventView, error) {
	args := []interface{}{filter.ViewerID}
	conditions := []string{"1=1"}
	if filter.ClubID != "" {
		args = append(args, filter.ClubID)
		conditions = append(conditions, fmt.Sprintf("e.club_id = $%d", len(args)))
	}
	if filter.AttendeeID != "" {
		args = append(args, filter.AttendeeID)
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM event_attendees aa WHERE aa.event_id = e.id AND aa.user_id = $%d)", len(args)))
	}
	if filter.UpcomingAt != nil {
		args = append(args, *filter.UpcomingAt)
		conditions = append(conditions, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT e.id, e.club_id, e.name, e.description, e.location, e.date, e.created_by, e.created_at,
c.name AS club_name,
(SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendee_count,
EXISTS (SELECT 1 FROM event_attendees v WHERE v.event_id = e.id AND v.user_id::text = $1) AS attending
FROM events e LEFT JOIN clubs c ON c.id = e.club_id
WHERE %s ORDER BY e.date ASC LIMIT %d`, strings.Join(conditions, " AND "), limit)

	var events []models.EventView
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID returns a single event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, club_id, name, description, location, date, created_by, created_at FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO events (id, club_id, name, description, location, date, created_by, created_at)
VALUES (:id, :club_id, :name, :description, :location, :date, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// ToggleRSVP flips userID's attendance of eventID.
func (r *EventRepository) ToggleRSVP(ctx context.Context, eventID, userID string) (*models.ToggleResult, error) {
	return toggle(ctx, r.db, rsvpRelation, eventID, userID)
}

// CountRSVPs returns how many events userID is attending.
func (r *EventRepository) CountRSVPs(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM event_attendees WHERE user_id = $1`
	var n int
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count rsvps: %w", err)
	}
	return n, nil
}
