package models

import "time"

// PointAward is a merit award a lecturer grants a student.
type PointAward struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClubID    *string   `db:"club_id" json:"club_id,omitempty"`
	AwardedBy string    `db:"awarded_by" json:"awarded_by"`
	Points    int       `db:"points" json:"points"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClubPoints is a per-club subtotal. ClubID is nil for awards not tied to a club.
type ClubPoints struct {
	ClubID   *string `db:"club_id" json:"club_id,omitempty"`
	ClubName string  `db:"club_name" json:"club_name"`
	Points   int     `db:"points" json:"points"`
}

// PointsSummary totals a student's awards.
type PointsSummary struct {
	StudentID string       `json:"student_id"`
	Total     int          `json:"total"`
	ByClub    []ClubPoints `json:"by_club"`
	Recent    []PointAward `json:"recent"`
}
