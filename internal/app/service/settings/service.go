// Package settings manages the singleton configuration row shared by the
// scheduler, the rates fetcher and the backup runner.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/pkg/types"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Get loads the settings row. The row is seeded at migration time, so a
// missing row is a genuine error.
func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	if err := s.db.WithContext(ctx).First(&st, models.SettingsRowID).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &st, nil
}

// Location resolves the configured timezone, falling back to UTC when the
// host has no matching tzdata entry.
func (s *Service) Location(st *models.Settings) *time.Location {
	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		s.log.Warnw("unknown timezone, falling back to UTC", "timezone", st.Timezone)
		return time.UTC
	}
	return loc
}

// UpdateInput carries the user-editable settings fields.
type UpdateInput struct {
	Timezone     string `json:"timezone"`
	Language     string `json:"language"`
	BaseCurrency string `json:"base_currency"`

	ExchangeEnabled bool    `json:"exchange_enabled"`
	ExchangeAPIKey  *string `json:"exchange_api_key"`

	PublicDashboard bool `json:"public_dashboard"`

	BackupWebdavURL      string `json:"backup_webdav_url"`
	BackupWebdavUsername string `json:"backup_webdav_username"`
	BackupWebdavPassword *string `json:"backup_webdav_password"`
	BackupAutoEnabled    bool   `json:"backup_auto_enabled"`
	BackupIntervalHours  int    `json:"backup_interval_hours"`
	BackupRetentionCount int    `json:"backup_retention_count"`
}

// Update validates and persists the editable fields. Secret fields are
// only overwritten when explicitly supplied.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*models.Settings, error) {
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, in.Timezone)
	}
	base := types.NormalizeCurrency(in.BaseCurrency)
	if !types.IsValidCurrency(base) {
		return nil, fmt.Errorf("invalid base currency %q", in.BaseCurrency)
	}
	if in.Language != "zh-CN" && in.Language != "en" {
		return nil, fmt.Errorf("invalid language %q", in.Language)
	}
	if in.BackupIntervalHours < 1 {
		in.BackupIntervalHours = 24
	}
	if in.BackupRetentionCount < 1 {
		in.BackupRetentionCount = 1
	} else if in.BackupRetentionCount > 100 {
		in.BackupRetentionCount = 100
	}

	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	st.Timezone = in.Timezone
	st.Language = in.Language
	st.BaseCurrency = base
	st.ExchangeEnabled = in.ExchangeEnabled
	if in.ExchangeAPIKey != nil {
		st.ExchangeAPIKey = *in.ExchangeAPIKey
	}
	st.PublicDashboard = in.PublicDashboard
	st.BackupWebdavURL = in.BackupWebdavURL
	st.BackupWebdavUsername = in.BackupWebdavUsername
	if in.BackupWebdavPassword != nil {
		st.BackupWebdavPassword = *in.BackupWebdavPassword
	}
	st.BackupAutoEnabled = in.BackupAutoEnabled
	st.BackupIntervalHours = in.BackupIntervalHours
	st.BackupRetentionCount = in.BackupRetentionCount

	if err := s.db.WithContext(ctx).Save(st).Error; err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return st, nil
}
