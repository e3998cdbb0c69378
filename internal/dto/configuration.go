package dto

// UpdateSettingsRequest is the PUT /settings payload. Omitted fields keep
// their current value.
type UpdateSettingsRequest struct {
	SiteName          *string `json:"site_name" validate:"omitempty,min=1,max=80"`
	AllowRegistration *bool   `json:"allow_registration"`
}
