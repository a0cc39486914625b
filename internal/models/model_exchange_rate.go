package models

import "time"

// ExchangeRate is a cached conversion rate relative to the base currency.
type ExchangeRate struct {
	CurrencyCode string    `gorm:"column:currency_code;type:varchar(3);primaryKey" json:"currency_code"`
	Rate         float64   `gorm:"column:rate;not null" json:"rate"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ExchangeRate) TableName() string {
	return "exchange_rates"
}
