package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type configurationRepoStub struct {
	items map[string]models.Configuration
	err   error
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	for _, cfg := range cfgs {
		cfg.UpdatedAt = time.Now()
		s.items[cfg.Key] = cfg
	}
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var settingDefaults = models.SiteSettings{SiteName: "School Clubs MS", AllowRegistration: true}

func TestConfigurationServiceSettingsFallsBackToDefaults(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{}, nil, nil, nil, settingDefaults)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "School Clubs MS", settings.SiteName)
	assert.True(t, settings.AllowRegistration)
	assert.Nil(t, settings.UpdatedAt)
}

func TestConfigurationServiceUpdatePersistsAndAudits(t *testing.T) {
	repo := &configurationRepoStub{}
	audit := &auditStub{}
	svc := NewConfigurationService(repo, audit, nil, nil, settingDefaults)

	closed := false
	name := "  Robotics Hub "
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	settings, err := svc.Update(context.Background(), dto.UpdateSettingsRequest{SiteName: &name, AllowRegistration: &closed}, actor)
	require.NoError(t, err)
	assert.Equal(t, "Robotics Hub", settings.SiteName)
	assert.False(t, settings.AllowRegistration)

	assert.Equal(t, "false", repo.items[models.SettingAllowRegistration].Value)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSettingsUpdate, audit.logs[0].Action)

	open, err := svc.RegistrationOpen(context.Background())
	require.NoError(t, err)
	assert.False(t, open)
}

func TestConfigurationServiceUpdateValidation(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{}, nil, nil, nil, settingDefaults)

	_, err := svc.Update(context.Background(), dto.UpdateSettingsRequest{}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	blank := "   "
	_, err = svc.Update(context.Background(), dto.UpdateSettingsRequest{SiteName: &blank}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceRepositoryFailure(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{err: errors.New("db down")}, nil, nil, nil, settingDefaults)

	_, err := svc.Settings(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
