package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/models"
)

func TestConfigurationRepositoryListByKeys(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	rows := sqlmock.NewRows([]string{"key", "value", "type", "description", "updated_by", "updated_at"}).
		AddRow(models.SettingSiteName, "Chess Academy", "STRING", nil, nil, time.Now())
	mock.ExpectQuery(`FROM configurations WHERE key IN \(\$1,\$2\)`).
		WithArgs(models.SettingSiteName, models.SettingAllowRegistration).
		WillReturnRows(rows)

	configs, err := repo.ListByKeys(context.Background(), []string{models.SettingSiteName, models.SettingAllowRegistration})
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "Chess Academy", configs[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryListByKeysEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	configs, err := repo.ListByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, configs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO configurations`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO configurations`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.Configuration{
		{Key: models.SettingSiteName, Value: "Clubs", Type: models.ConfigurationTypeString},
		{Key: models.SettingAllowRegistration, Value: "false", Type: models.ConfigurationTypeBoolean},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.SettingAllowRegistration)
	assert.NoError(t, mock.ExpectationsWereMet())
}
