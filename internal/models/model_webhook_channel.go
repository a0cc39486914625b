package models

import "time"

// WebhookChannel is a configured outbound notification endpoint.
type WebhookChannel struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	URL  string `gorm:"column:url;type:varchar(512);not null" json:"url"`
	// Template is an optional JSON payload template with {{field}} tokens.
	// Empty means the default payload shape is used.
	Template string `gorm:"column:template;type:text" json:"template"`
	Enabled  bool   `gorm:"column:enabled;not null;default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WebhookChannel) TableName() string {
	return "webhook_channels"
}
