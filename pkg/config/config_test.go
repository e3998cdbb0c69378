package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "School Clubs MS", cfg.Settings.SiteName)
	assert.True(t, cfg.Settings.AllowRegistration)
	assert.Equal(t, "student-reports", cfg.Cloud.StudentBucket)
	assert.Equal(t, 10*time.Minute, cfg.Engagement.CacheTTL)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SITE_NAME", "Riverside Clubs")
	t.Setenv("ALLOW_REGISTRATION", "false")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("ENGAGEMENT_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Riverside Clubs", cfg.Settings.SiteName)
	assert.False(t, cfg.Settings.AllowRegistration)
	assert.Equal(t, "https://example.supabase.co", cfg.Cloud.URL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Engagement.CacheTTL)
}
