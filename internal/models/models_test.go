package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteSettingsApply(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	defaults := SiteSettings{SiteName: "School Clubs MS", AllowRegistration: true}

	got := defaults.Apply([]Configuration{
		{Key: SettingSiteName, Value: "Riverside Clubs", UpdatedAt: older},
		{Key: SettingAllowRegistration, Value: "false", UpdatedAt: newer},
		{Key: "unknown", Value: "x", UpdatedAt: newer.Add(time.Hour)},
	})

	assert.Equal(t, "Riverside Clubs", got.SiteName)
	assert.False(t, got.AllowRegistration)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, newer, *got.UpdatedAt)
	assert.Equal(t, "School Clubs MS", defaults.SiteName)
}

func TestSiteSettingsApplyIgnoresBadValues(t *testing.T) {
	defaults := SiteSettings{SiteName: "School Clubs MS", AllowRegistration: true}
	got := defaults.Apply([]Configuration{
		{Key: SettingSiteName, Value: ""},
		{Key: SettingAllowRegistration, Value: "maybe"},
	})
	assert.Equal(t, "School Clubs MS", got.SiteName)
	assert.True(t, got.AllowRegistration)
}

func TestReportJobParamsRoundTrip(t *testing.T) {
	params := ReportJobParams{Format: ReportFormatPDF, RecentPosts: 10}
	raw, err := params.Value()
	require.NoError(t, err)

	var decoded ReportJobParams
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, ReportFormatPDF, decoded.Format)
	assert.Equal(t, 10, decoded.RecentPosts)

	require.NoError(t, decoded.Scan(nil))
	assert.Equal(t, ReportJobParams{}, decoded)
	assert.Error(t, decoded.Scan(42))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, RoleLecturer.Valid())
	assert.False(t, UserRole("TEACHER").Valid())
	assert.True(t, ReportTypeClubsActivity.Valid())
	assert.False(t, ReportType("attendance").Valid())
	assert.True(t, ReportStatusFailed.Terminal())
	assert.False(t, ReportStatusProcessing.Terminal())
}
