package models

import (
	"time"

	"gorm.io/datatypes"
)

// LogEntry is an application event persisted for the activity log view.
// Operational logging still goes through zap; these rows are the curated
// subset surfaced in the UI.
type LogEntry struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Level     string         `gorm:"column:level;type:varchar(8);not null" json:"level"`
	Scope     string         `gorm:"column:scope;type:varchar(64);not null" json:"scope"`
	Message   string         `gorm:"column:message;type:text;not null" json:"message"`
	Meta      datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}

func (LogEntry) TableName() string {
	return "logs"
}
