package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type pointsRepoStub struct {
	mu     sync.Mutex
	awards []models.PointAward
}

func (s *pointsRepoStub) Create(ctx context.Context, award *models.PointAward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	award.ID = "award-1"
	s.awards = append(s.awards, *award)
	return nil
}

func (s *pointsRepoStub) Total(ctx context.Context, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, a := range s.awards {
		if a.StudentID == studentID {
			total += a.Points
		}
	}
	return total, nil
}

func (s *pointsRepoStub) ByClub(ctx context.Context, studentID string) ([]models.ClubPoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[string]int{}
	for _, a := range s.awards {
		key := "General"
		if a.ClubID != nil {
			key = *a.ClubID
		}
		sums[key] += a.Points
	}
	var out []models.ClubPoints
	for name, points := range sums {
		out = append(out, models.ClubPoints{ClubName: name, Points: points})
	}
	return out, nil
}

func (s *pointsRepoStub) Recent(ctx context.Context, studentID string, limit int) ([]models.PointAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PointAward(nil), s.awards...), nil
}

func TestPointsServiceAwardAndSummary(t *testing.T) {
	repo := &pointsRepoStub{}
	audit := &auditStub{}
	svc := NewPointsService(repo, newUUIDUserFixture(), newUUIDClubRepoStub(), audit, nil, nil, nil)

	club := chessClubUUID
	_, err := svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: studentUUID, ClubID: &club, Points: 15, Reason: "Tournament"}, lecturer)
	require.NoError(t, err)
	award, err := svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: studentUUID, Points: 5}, lecturer)
	require.NoError(t, err)
	assert.Nil(t, award.ClubID)
	assert.Equal(t, "lec-1", award.AwardedBy)

	blank := "  "
	award, err = svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: studentUUID, ClubID: &blank, Points: 2}, lecturer)
	require.NoError(t, err)
	assert.Nil(t, award.ClubID)
	assert.Len(t, audit.logs, 3)

	summary, err := svc.Summary(context.Background(), studentUUID, &models.JWTClaims{UserID: studentUUID, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, 22, summary.Total)
	assert.Len(t, summary.ByClub, 2)
	assert.Len(t, summary.Recent, 3)
}

func TestPointsServiceAwardRejects(t *testing.T) {
	repo := &pointsRepoStub{}
	svc := NewPointsService(repo, newUUIDUserFixture(), newUUIDClubRepoStub(), nil, nil, nil, nil)

	_, err := svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: studentUUID, Points: 0}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: lecturerUUID, Points: 3}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	missing := missingUUID
	_, err = svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: studentUUID, ClubID: &missing, Points: 3}, lecturer)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Malformed ids fail validation before any lookup.
	_, err = svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: "1", Points: 3}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	club := "club-1"
	_, err = svc.Award(context.Background(), dto.AwardPointsRequest{StudentID: studentUUID, ClubID: &club, Points: 3}, lecturer)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.awards)

	_, err = svc.Summary(context.Background(), "1", &models.JWTClaims{UserID: "9", Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
