package models

import (
	"time"

	"gorm.io/datatypes"
)

// Settings is the singleton configuration row (id is always 1).
type Settings struct {
	ID           uint   `gorm:"column:id;primaryKey" json:"id"`
	Timezone     string `gorm:"column:timezone;type:varchar(64);not null;default:'Asia/Shanghai'" json:"timezone"`
	Language     string `gorm:"column:language;type:varchar(8);not null;default:'zh-CN'" json:"language"`
	BaseCurrency string `gorm:"column:base_currency;type:varchar(3);not null;default:'CNY'" json:"base_currency"`

	ExchangeEnabled bool       `gorm:"column:exchange_enabled;not null;default:false" json:"exchange_enabled"`
	ExchangeAPIKey  string     `gorm:"column:exchange_api_key;type:varchar(128)" json:"-"`
	LastRateUpdate  *time.Time `gorm:"column:last_rate_update" json:"last_rate_update"`

	AuthEnabled     bool   `gorm:"column:auth_enabled;not null;default:false" json:"auth_enabled"`
	PasswordHash    string `gorm:"column:password_hash;type:varchar(128)" json:"-"`
	PublicDashboard bool   `gorm:"column:public_dashboard;not null;default:true" json:"public_dashboard"`

	// DefaultNotifyChannelIDs is applied to new subscriptions that do not
	// pick channels explicitly.
	DefaultNotifyChannelIDs datatypes.JSON `gorm:"column:default_notify_channel_ids;type:jsonb;default:'[]'" json:"default_notify_channel_ids"`

	BackupWebdavURL      string `gorm:"column:backup_webdav_url;type:varchar(512)" json:"backup_webdav_url"`
	BackupWebdavUsername string `gorm:"column:backup_webdav_username;type:varchar(128)" json:"backup_webdav_username"`
	BackupWebdavPassword string `gorm:"column:backup_webdav_password;type:varchar(128)" json:"-"`
	BackupAutoEnabled    bool   `gorm:"column:backup_auto_enabled;not null;default:false" json:"backup_auto_enabled"`
	BackupIntervalHours  int    `gorm:"column:backup_interval_hours;not null;default:24" json:"backup_interval_hours"`
	BackupRetentionCount int    `gorm:"column:backup_retention_count;not null;default:1" json:"backup_retention_count"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (Settings) TableName() string {
	return "settings"
}

// SettingsRowID is the fixed primary key of the singleton row.
const SettingsRowID uint = 1
