package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func strPtr(value string) *string {
	return &value
}

func TestToggleInsertsWhenAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM club_members WHERE club_id = $1 AND user_id = $2")).
		WithArgs("club-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO club_members (club_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING")).
		WithArgs("club-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM club_members WHERE club_id = $1")).
		WithArgs("club-1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectCommit()

	res, err := toggle(context.Background(), db, membershipRelation, "club-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleActive, res.State)
	assert.Equal(t, 4, res.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRemovesWhenPresent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2")).
		WithArgs("event-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM event_attendees WHERE event_id = $1")).
		WithArgs("event-1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	res, err := toggle(context.Background(), db, rsvpRelation, "event-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleInactive, res.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM club_members").WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	_, err := toggle(context.Background(), db, membershipRelation, "club-1", "user-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1,$2,$3", placeholders(3))
}
