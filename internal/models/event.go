package models

import "time"

// DefaultEventLocation is shown for events created without a location.
const DefaultEventLocation = "TBD"

// Event is a dated club or school event that users can RSVP to.
type Event struct {
	ID          string    `db:"id" json:"id"`
	ClubID      *string   `db:"club_id" json:"club_id,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	Date        time.Time `db:"date" json:"date"`
	CreatedBy   *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EventView adds attendance details for listings.
type EventView struct {
	Event
	ClubName      *string `db:"club_name" json:"club_name,omitempty"`
	AttendeeCount int     `db:"attendee_count" json:"attendee_count"`
	Attending     bool    `db:"attending" json:"attending"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	ClubID     string
	AttendeeID string
	ViewerID   string
	UpcomingAt *time.Time
	Limit      int
}
