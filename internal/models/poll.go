package models

import "time"

// Poll is a single-choice question posted to a club.
type Poll struct {
	ID        string    `db:"id" json:"id"`
	ClubID    string    `db:"club_id" json:"club_id"`
	Question  string    `db:"question" json:"question"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PollOption is one answer of a poll.
type PollOption struct {
	ID       string `db:"id" json:"id"`
	PollID   string `db:"poll_id" json:"poll_id"`
	Text     string `db:"text" json:"text"`
	Position int    `db:"position" json:"position"`
}

// PollBallot records a voter's single choice in a poll.
type PollBallot struct {
	PollID   string    `db:"poll_id" json:"poll_id"`
	OptionID string    `db:"option_id" json:"option_id"`
	VoterID  string    `db:"voter_id" json:"voter_id"`
	CastAt   time.Time `db:"cast_at" json:"cast_at"`
}

// PollOptionResult is an option with its vote tally.
type PollOptionResult struct {
	ID       string `db:"id" json:"id"`
	Text     string `db:"text" json:"text"`
	Position int    `db:"position" json:"position"`
	Votes    int    `db:"votes" json:"votes"`
}

// PollResult is a poll with tallies and the caller's voting state.
type PollResult struct {
	Poll
	ClubName   string             `json:"club_name"`
	Options    []PollOptionResult `json:"options"`
	TotalVotes int                `json:"total_votes"`
	HasVoted   bool               `json:"has_voted"`
}

// PollSummary is a listing row with the total number of ballots.
type PollSummary struct {
	Poll
	ClubName   string `db:"club_name" json:"club_name"`
	TotalVotes int    `db:"total_votes" json:"total_votes"`
}
