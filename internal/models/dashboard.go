package models

// StudentDashboard aggregates the landing page figures of a student.
type StudentDashboard struct {
	StudentID      string      `json:"student_id"`
	TotalClubs     int         `json:"total_clubs"`
	UpcomingEvents []EventView `json:"upcoming_events"`
	RSVPEvents     int         `json:"rsvp_events"`
	VotedPolls     int         `json:"voted_polls"`
	PointsTotal    int         `json:"points_total"`
	Gpa            *GpaRecord  `json:"gpa,omitempty"`
}
