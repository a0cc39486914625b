package models

import "time"

type BackupStatus string

const (
	BackupStatusSuccess BackupStatus = "success"
	BackupStatusFailed  BackupStatus = "failed"
)

type BackupType string

const (
	BackupTypeAuto   BackupType = "auto"
	BackupTypeManual BackupType = "manual"
)

// BackupRecord is an audit row written after every backup attempt.
type BackupRecord struct {
	ID        uint         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Type      BackupType   `gorm:"column:type;type:varchar(16);not null" json:"type"`
	Status    BackupStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Message   string       `gorm:"column:message;type:text" json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

func (BackupRecord) TableName() string {
	return "backups"
}
