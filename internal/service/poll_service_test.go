package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

// pollRepoStub mimics the unique (poll_id, voter_id) constraint.
type pollRepoStub struct {
	mu      sync.Mutex
	polls   map[string]*models.PollSummary
	options map[string][]models.PollOptionResult
	ballots map[string]string
}

func newPollRepoStub() *pollRepoStub {
	return &pollRepoStub{
		polls: map[string]*models.PollSummary{
			"poll-1": {Poll: models.Poll{ID: "poll-1", ClubID: "club-1", Question: "Venue?"}, ClubName: "Chess"},
		},
		options: map[string][]models.PollOptionResult{
			"poll-1": {{ID: "opt-a", Text: "Hall", Position: 1}, {ID: "opt-b", Text: "Lab", Position: 2}},
		},
		ballots: map[string]string{},
	}
}

func (s *pollRepoStub) Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll.ID = "poll-new"
	results := make([]models.PollOptionResult, 0, len(options))
	for i := range options {
		options[i].ID = poll.ID + "-opt"
		options[i].PollID = poll.ID
		options[i].Position = i + 1
		results = append(results, models.PollOptionResult{ID: options[i].ID, Text: options[i].Text, Position: i + 1})
	}
	s.polls[poll.ID] = &models.PollSummary{Poll: *poll}
	s.options[poll.ID] = results
	return nil
}

func (s *pollRepoStub) FindByID(ctx context.Context, id string) (*models.PollSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *pollRepoStub) Options(ctx context.Context, pollID string) ([]models.PollOptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PollOptionResult, len(s.options[pollID]))
	copy(out, s.options[pollID])
	for i := range out {
		for key, optionID := range s.ballots {
			if optionID == out[i].ID && len(key) > len(pollID) && key[:len(pollID)] == pollID {
				out[i].Votes++
			}
		}
	}
	return out, nil
}

func (s *pollRepoStub) List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PollSummary
	for _, p := range s.polls {
		if clubID == "" || p.ClubID == clubID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *pollRepoStub) HasVoted(ctx context.Context, pollID, voterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ballots[pollID+"/"+voterID]
	return ok, nil
}

func (s *pollRepoStub) CastVote(ctx context.Context, pollID, optionID, voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, opt := range s.options[pollID] {
		if opt.ID == optionID {
			found = true
		}
	}
	key := pollID + "/" + voterID
	if _, ok := s.ballots[key]; ok {
		return repository.ErrAlreadyVoted
	}
	if !found {
		return repository.ErrOptionMismatch
	}
	s.ballots[key] = optionID
	return nil
}

func TestPollServiceVoteOnce(t *testing.T) {
	repo := newPollRepoStub()
	svc := NewPollService(repo, newClubRepoStub(), nil, NewMetricsService(), nil, nil)

	result, err := svc.Vote(context.Background(), "poll-1", dto.VoteRequest{OptionID: "opt-a"}, student)
	require.NoError(t, err)
	assert.True(t, result.HasVoted)
	assert.Equal(t, 1, result.TotalVotes)
	assert.Equal(t, 1, result.Options[0].Votes)

	_, err = svc.Vote(context.Background(), "poll-1", dto.VoteRequest{OptionID: "opt-b"}, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyVoted.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "opt-a", repo.ballots["poll-1/stu-1"])
}

func TestPollServiceCanVote(t *testing.T) {
	repo := newPollRepoStub()
	svc := NewPollService(repo, newClubRepoStub(), nil, nil, nil, nil)

	ok, err := svc.CanVote(context.Background(), "poll-1", student.UserID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Vote(context.Background(), "poll-1", dto.VoteRequest{OptionID: "opt-a"}, student)
	require.NoError(t, err)

	ok, err = svc.CanVote(context.Background(), "poll-1", student.UserID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CanVote(context.Background(), "poll-404", student.UserID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// An option from another poll still reports the ballot already held.
	_, err = svc.Vote(context.Background(), "poll-1", dto.VoteRequest{OptionID: "opt-z"}, student)
	assert.Equal(t, appErrors.ErrAlreadyVoted.Code, appErrors.FromError(err).Code)
}

func TestPollServiceVoteConcurrentSingleBallot(t *testing.T) {
	repo := newPollRepoStub()
	svc := NewPollService(repo, newClubRepoStub(), nil, nil, nil, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Vote(context.Background(), "poll-1", dto.VoteRequest{OptionID: "opt-b"}, student)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if appErrors.FromError(err).Code == appErrors.ErrAlreadyVoted.Code {
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 7, rejected)
}

func TestPollServiceVoteRejectsForeignOption(t *testing.T) {
	svc := NewPollService(newPollRepoStub(), newClubRepoStub(), nil, nil, nil, nil)

	_, err := svc.Vote(context.Background(), "poll-1", dto.VoteRequest{OptionID: "opt-z"}, student)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Vote(context.Background(), "poll-404", dto.VoteRequest{OptionID: "opt-a"}, student)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPollServiceCreate(t *testing.T) {
	repo := newPollRepoStub()
	svc := NewPollService(repo, newUUIDClubRepoStub(), nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreatePollRequest{ClubID: chessClubUUID, Question: "Snacks?", Options: []string{"Yes", "  "}}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreatePollRequest{ClubID: chessClubUUID, Question: "   ", Options: []string{"Yes", "No"}}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreatePollRequest{ClubID: missingUUID, Question: "Snacks?", Options: []string{"Yes", "No"}}, lecturer)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreatePollRequest{ClubID: "club-1", Question: "Snacks?", Options: []string{"Yes", "No"}}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	poll, err := svc.Create(context.Background(), dto.CreatePollRequest{ClubID: chessClubUUID, Question: " Snacks? ", Options: []string{" Yes", "", "No "}}, lecturer)
	require.NoError(t, err)
	assert.Equal(t, "Snacks?", poll.Question)
	assert.Equal(t, "Chess", poll.ClubName)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "Yes", poll.Options[0].Text)
	assert.Equal(t, 2, poll.Options[1].Position)
}
