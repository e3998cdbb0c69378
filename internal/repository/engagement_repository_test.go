package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRepositoryClubCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEngagementRepository(db)

	mock.ExpectQuery("FROM clubs c ORDER BY c.name").
		WillReturnRows(sqlmock.NewRows([]string{"club_id", "club_name", "member_count", "event_count", "post_count", "poll_count"}).
			AddRow("c1", "Chess", 10, 2, 3, 1).
			AddRow("c2", "Drama", 0, 0, 0, 0))

	counts, err := repo.ClubCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 10, counts[0].Members)
	assert.Equal(t, 1, counts[0].Polls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
