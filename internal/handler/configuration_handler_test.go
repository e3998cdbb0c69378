package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/middleware"
	"github.com/noah-isme/student-clubs-api/internal/models"
)

type configurationServiceMock struct {
	settings models.SiteSettings
	lastReq  dto.UpdateSettingsRequest
	actor    *models.JWTClaims
}

func (m *configurationServiceMock) Settings(ctx context.Context) (*models.SiteSettings, error) {
	return &m.settings, nil
}

func (m *configurationServiceMock) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.SiteSettings, error) {
	m.lastReq = req
	m.actor = actor
	if req.SiteName != nil {
		m.settings.SiteName = *req.SiteName
	}
	if req.AllowRegistration != nil {
		m.settings.AllowRegistration = *req.AllowRegistration
	}
	return &m.settings, nil
}

func TestConfigurationHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConfigurationHandler(&configurationServiceMock{settings: models.SiteSettings{SiteName: "School Clubs MS", AllowRegistration: true}})
	c, w := newGinContext(http.MethodGet, "/settings", nil)

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "School Clubs MS", envelope.Data["site_name"])
	assert.Equal(t, true, envelope.Data["allow_registration"])
}

func TestConfigurationHandlerUpdatePartial(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &configurationServiceMock{settings: models.SiteSettings{SiteName: "Old", AllowRegistration: true}}
	handler := NewConfigurationHandler(mock)
	c, w := newGinContext(http.MethodPut, "/settings", []byte(`{"allow_registration": false}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin})

	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.lastReq.SiteName)
	require.NotNil(t, mock.lastReq.AllowRegistration)
	assert.False(t, mock.settings.AllowRegistration)
	assert.Equal(t, "Old", mock.settings.SiteName)
	assert.Equal(t, "adm-1", mock.actor.UserID)
}

func TestConfigurationHandlerUpdateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConfigurationHandler(&configurationServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/settings", bytes.NewReader([]byte(`{"allow_registration": "maybe"`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
