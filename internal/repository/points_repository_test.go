package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsRepositoryTotalAndByClub(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(points), 0) FROM student_points WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(15))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY p.club_id, c.name ORDER BY points DESC")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"club_id", "club_name", "points"}).
			AddRow("club-1", "Chess", 10).
			AddRow(nil, "General", 5))

	total, err := repo.Total(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 15, total)

	byClub, err := repo.ByClub(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, byClub, 2)
	assert.Nil(t, byClub[1].ClubID)
	assert.Equal(t, "General", byClub[1].ClubName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
