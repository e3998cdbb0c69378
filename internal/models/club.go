package models

import "time"

// Club is a student club.
type Club struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	MeetingTime *string   `db:"meeting_time" json:"meeting_time,omitempty"`
	CreatedBy   *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClubSummary is a club with its member count and the caller's membership.
type ClubSummary struct {
	Club
	MemberCount int  `db:"member_count" json:"member_count"`
	IsMember    bool `db:"is_member" json:"is_member"`
}

// ClubFilter narrows club listings.
type ClubFilter struct {
	Search   string
	MemberID string
	ViewerID string
	Page     int
	PageSize int
}

// ClubPost is an announcement posted to a club by one of its members.
type ClubPost struct {
	ID         string    `db:"id" json:"id"`
	ClubID     string    `db:"club_id" json:"club_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	ClubName   string    `db:"club_name" json:"club_name,omitempty"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ToggleState is the outcome of flipping a membership or RSVP relation.
type ToggleState string

const (
	ToggleActive   ToggleState = "active"
	ToggleInactive ToggleState = "inactive"
)

// ToggleResult is returned by membership and RSVP toggles.
type ToggleResult struct {
	State ToggleState `json:"state"`
	Count int         `json:"count"`
}
