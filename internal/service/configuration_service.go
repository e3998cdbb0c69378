package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

type configurationAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

var settingDescriptions = map[string]string{
	models.SettingSiteName:          "Name shown in page headers and report titles",
	models.SettingAllowRegistration: "Whether new students may sign themselves up",
}

var settingKeys = []string{models.SettingSiteName, models.SettingAllowRegistration}

// ConfigurationService reads and writes the persisted site settings.
type ConfigurationService struct {
	repo      configurationRepository
	audit     configurationAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	defaults  models.SiteSettings
}

// NewConfigurationService constructs a ConfigurationService. defaults apply
// to every setting that has not been persisted yet.
func NewConfigurationService(repo configurationRepository, audit configurationAuditLogger, validate *validator.Validate, logger *zap.Logger, defaults models.SiteSettings) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults.UpdatedAt = nil
	return &ConfigurationService{repo: repo, audit: audit, validator: validate, logger: logger, defaults: defaults}
}

// Settings returns the current site settings.
func (s *ConfigurationService) Settings(ctx context.Context) (*models.SiteSettings, error) {
	rows, err := s.repo.ListByKeys(ctx, settingKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	settings := s.defaults.Apply(rows)
	return &settings, nil
}

// RegistrationOpen reports whether self sign-up is enabled.
func (s *ConfigurationService) RegistrationOpen(ctx context.Context) (bool, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return false, err
	}
	return settings.AllowRegistration, nil
}

// Update persists the provided settings and returns the result.
func (s *ConfigurationService) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.SiteSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	var rows []models.Configuration
	if req.SiteName != nil {
		name := strings.TrimSpace(*req.SiteName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "site_name must not be blank")
		}
		rows = append(rows, s.row(models.SettingSiteName, name, models.ConfigurationTypeString, actor))
	}
	if req.AllowRegistration != nil {
		rows = append(rows, s.row(models.SettingAllowRegistration, strconv.FormatBool(*req.AllowRegistration), models.ConfigurationTypeBoolean, actor))
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no settings provided")
	}

	before, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.BulkUpsert(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	after := before.Apply(rows)
	s.emitAudit(ctx, actor, before, &after)
	return &after, nil
}

func (s *ConfigurationService) row(key, value string, typ models.ConfigurationType, actor *models.JWTClaims) models.Configuration {
	return models.Configuration{
		Key:         key,
		Value:       value,
		Type:        typ,
		Description: strPtr(settingDescriptions[key]),
		UpdatedBy:   userIDPtr(actor),
		UpdatedAt:   time.Now().UTC(),
	}
}

func (s *ConfigurationService) emitAudit(ctx context.Context, actor *models.JWTClaims, before, after *models.SiteSettings) {
	if s.audit == nil {
		return
	}
	oldBytes, _ := json.Marshal(before)
	newBytes, _ := json.Marshal(after)
	resource := "settings"
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionSettingsUpdate,
		Resource:   resource,
		ResourceID: &resource,
		OldValues:  oldBytes,
		NewValues:  newBytes,
	}); err != nil {
		s.logger.Warn("failed to record settings audit", zap.Error(err))
	}
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
