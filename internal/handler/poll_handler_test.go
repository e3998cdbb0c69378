package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

const (
	pollID   = "0b9d0f3e-7a4e-4b8a-8d0c-3c2f58f9c001"
	optionID = "0b9d0f3e-7a4e-4b8a-8d0c-3c2f58f9c0aa"
)

type pollServiceMock struct {
	voted map[string]bool
}

func (m *pollServiceMock) Create(ctx context.Context, req dto.CreatePollRequest, actor *models.JWTClaims) (*models.PollResult, error) {
	return &models.PollResult{Poll: models.Poll{ID: pollID, Question: req.Question}}, nil
}

func (m *pollServiceMock) Get(ctx context.Context, id, viewerID string) (*models.PollResult, error) {
	return &models.PollResult{Poll: models.Poll{ID: id}, HasVoted: m.voted[viewerID]}, nil
}

func (m *pollServiceMock) List(ctx context.Context, clubID string, limit int) ([]models.PollSummary, error) {
	return nil, nil
}

func (m *pollServiceMock) Vote(ctx context.Context, id string, req dto.VoteRequest, actor *models.JWTClaims) (*models.PollResult, error) {
	if m.voted[actor.UserID] {
		return nil, appErrors.ErrAlreadyVoted
	}
	m.voted[actor.UserID] = true
	return m.Get(ctx, id, actor.UserID)
}

func vote(handler *PollHandler, id, body string) int {
	c, w := newGinContext(http.MethodPost, "/polls/"+id+"/vote", []byte(body))
	c.Params = gin.Params{{Key: "id", Value: id}}
	asUser(c, "stu-1", models.RoleStudent)
	handler.Vote(c)
	return w.Code
}

func TestPollHandlerVoteOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPollHandler(&pollServiceMock{voted: map[string]bool{}})
	body := `{"option_id":"` + optionID + `"}`

	require.Equal(t, http.StatusOK, vote(handler, pollID, body))
	assert.Equal(t, http.StatusConflict, vote(handler, pollID, body))
}

func TestPollHandlerVoteRejectsBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPollHandler(&pollServiceMock{voted: map[string]bool{}})

	assert.Equal(t, http.StatusNotFound, vote(handler, "42", `{"option_id":"`+optionID+`"}`))
	assert.Equal(t, http.StatusBadRequest, vote(handler, pollID, `{"option_id":"first"}`))
	assert.Equal(t, http.StatusBadRequest, vote(handler, pollID, `{`))
}
