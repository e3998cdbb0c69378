package models

import (
	"strconv"
	"time"
)

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeString  ConfigurationType = "STRING"
	ConfigurationTypeBoolean ConfigurationType = "BOOLEAN"
)

// Persisted settings keys.
const (
	SettingSiteName          = "site_name"
	SettingAllowRegistration = "allow_registration"
)

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key         string            `db:"key" json:"key"`
	Value       string            `db:"value" json:"value"`
	Type        ConfigurationType `db:"type" json:"type"`
	Description *string           `db:"description" json:"description,omitempty"`
	UpdatedBy   *string           `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// SiteSettings is the typed view over the persisted configuration rows.
type SiteSettings struct {
	SiteName          string     `json:"site_name"`
	AllowRegistration bool       `json:"allow_registration"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Apply overlays persisted rows on top of s. Unknown keys and unparsable
// values are ignored.
func (s SiteSettings) Apply(rows []Configuration) SiteSettings {
	for _, row := range rows {
		switch row.Key {
		case SettingSiteName:
			if row.Value != "" {
				s.SiteName = row.Value
			}
		case SettingAllowRegistration:
			if v, err := strconv.ParseBool(row.Value); err == nil {
				s.AllowRegistration = v
			}
		default:
			continue
		}
		if s.UpdatedAt == nil || row.UpdatedAt.After(*s.UpdatedAt) {
			ts := row.UpdatedAt
			s.UpdatedAt = &ts
		}
	}
	return s
}
