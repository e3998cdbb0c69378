package dto

// CreateClubRequest is the POST /clubs payload.
type CreateClubRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	MeetingTime *string `json:"meeting_time" validate:"omitempty,max=120"`
}

// CreatePostRequest is the POST /clubs/:id/posts payload.
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// CreateEventRequest is the POST /events payload. Location defaults when empty.
type CreateEventRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
	Date        string  `json:"date" validate:"required"`
	ClubID      *string `json:"club_id" validate:"omitempty,uuid4"`
}

// CreatePollRequest is the POST /polls payload.
type CreatePollRequest struct {
	ClubID   string   `json:"club_id" validate:"required,uuid4"`
	Question string   `json:"question" validate:"required,max=300"`
	Options  []string `json:"options" validate:"required,min=2,dive,max=200"`
}

// VoteRequest is the POST /polls/:id/vote payload.
type VoteRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}
