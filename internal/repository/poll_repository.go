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
	"github.com/noah-isme/student-clubs-api/pkg/database"
)

var (
	// ErrAlreadyVoted is returned when the voter already holds a ballot in the poll.
	ErrAlreadyVoted = errors.New("voter already holds a ballot")
	// ErrOptionMismatch is returned when the option does not belong to the poll.
	ErrOptionMismatch = errors.New("option does not belong to poll")
)

// PollRepository persists polls, their options and ballots.
type PollRepository struct {
	db *sqlx.DB
}

// NewPollRepository constructs the repository.
func NewPollRepository(db *sqlx.DB) *PollRepository {
	return &PollRepository{db: db}
}

// Create inserts the poll and its options in one transaction. Option
// positions follow slice order.
func (r *PollRepository) Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	poll.CreatedAt = time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertPoll = `INSERT INTO polls (id, club_id, question, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, insertPoll, poll.ID, poll.ClubID, poll.Question, poll.CreatedBy, poll.CreatedAt); err != nil {
			return fmt.Errorf("create poll: %w", err)
		}
		const insertOption = `INSERT INTO poll_options (id, poll_id, text, position) VALUES ($1, $2, $3, $4)`
		for i := range options {
			if options[i].ID == "" {
				options[i].ID = uuid.NewString()
			}
			options[i].PollID = poll.ID
			options[i].Position = i + 1
			if _, err := tx.ExecContext(ctx, insertOption, options[i].ID, poll.ID, options[i].Text, options[i].Position); err != nil {
				return fmt.Errorf("create poll option: %w", err)
			}
		}
		return nil
	})
}

// FindByID returns the poll with its club name.
func (r *PollRepository) FindByID(ctx context.Context, id string) (*models.PollSummary, error) {
	const query = `SELECT p.id, p.club_id, p.question, p.created_by, p.created_at, c.name AS club_name,
(SELECT COUNT(*) FROM poll_ballots b WHERE b.poll_id = p.id) AS total_votes
FROM polls p JOIN clubs c ON c.id = p.club_id WHERE p.id = $1`
	var poll models.PollSummary
	if err := r.db.GetContext(ctx, &poll, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find poll: %w", err)
	}
	return &poll, nil
}

// Options returns the options of a poll with their tallies in display order.
func (r *PollRepository) Options(ctx context.Context, pollID string) ([]models.PollOptionResult, error) {
	const query = `SELECT o.id, o.text, o.position, COUNT(b.voter_id) AS votes
FROM poll_options o LEFT JOIN poll_ballots b ON b.option_id = o.id AND b.poll_id = o.poll_id
WHERE o.poll_id = $1 GROUP BY o.id, o.text, o.position ORDER BY o.position`
	var options []models.PollOptionResult
	if err := r.db.SelectContext(ctx, &options, query, pollID); err != nil {
		return nil, fmt.Errorf("list poll options: %w", err)
	}
	return options, nil
}

// List returns polls newest first, optionally for a single club.
func (r *PollRepository) List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `SELECT p.id, p.club_id, p.question, p.created_by, p.created_at, c.name AS club_name,
(SELECT COUNT(*) FROM poll_ballots b WHERE b.poll_id = p.id) AS total_votes
FROM polls p JOIN clubs c ON c.id = p.club_id`
	args := []interface{}{}
	if clubID != "" {
		args = append(args, clubID)
		query += ` WHERE p.club_id = $1`
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT %d`, limit)
	var polls []models.PollSummary
	if err := r.db.SelectContext(ctx, &polls, query, args...); err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

const ballotExistsQuery = `SELECT EXISTS (SELECT 1 FROM poll_ballots WHERE poll_id = $1 AND voter_id = $2)`

// HasVoted reports whether voterID holds a ballot on any option of pollID.
func (r *PollRepository) HasVoted(ctx context.Context, pollID, voterID string) (bool, error) {
	var voted bool
	if err := r.db.GetContext(ctx, &voted, ballotExistsQuery, pollID, voterID); err != nil {
		return false, fmt.Errorf("check ballot: %w", err)
	}
	return voted, nil
}

// CastVote records a ballot. The uniqueness of (poll_id, voter_id) makes the
// insert and the already-voted check one atomic step. A voter who already
// holds a ballot gets ErrAlreadyVoted whatever option they name.
func (r *PollRepository) CastVote(ctx context.Context, pollID, optionID, voterID string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const optionQuery = `SELECT EXISTS (SELECT 1 FROM poll_options WHERE id = $1 AND poll_id = $2)`
		var ok bool
		if err := tx.GetContext(ctx, &ok, optionQuery, optionID, pollID); err != nil {
			return fmt.Errorf("check poll option: %w", err)
		}
		if !ok {
			var voted bool
			if err := tx.GetContext(ctx, &voted, ballotExistsQuery, pollID, voterID); err != nil {
				return fmt.Errorf("check ballot: %w", err)
			}
			if voted {
				return ErrAlreadyVoted
			}
			return ErrOptionMismatch
		}

		const insert = `INSERT INTO poll_ballots (poll_id, option_id, voter_id, cast_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (poll_id, voter_id) DO NOTHING`
		res, err := tx.ExecContext(ctx, insert, pollID, optionID, voterID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("cast vote: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("cast vote rows: %w", err)
		}
		if affected == 0 {
			return ErrAlreadyVoted
		}
		return nil
	})
}

// CountVotedBy returns how many polls voterID took part in.
func (r *PollRepository) CountVotedBy(ctx context.Context, voterID string) (int, error) {
	const query = `SELECT COUNT(*) FROM poll_ballots WHERE voter_id = $1`
	var n int
	if err := r.db.GetContext(ctx, &n, query, voterID); err != nil {
		return 0, fmt.Errorf("count ballots: %w", err)
	}
	return n, nil
}
