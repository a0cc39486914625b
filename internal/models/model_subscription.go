package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/nebulahq/nebula/pkg/types"

	"gorm.io/datatypes"
)

// Subscription is a tracked recurring payment.
type Subscription struct {
	ID      uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Icon    string `gorm:"column:icon;type:varchar(16)" json:"icon"`
	LogoURL string `gorm:"column:logo_url;type:varchar(512)" json:"logo_url"`
	URL     string `gorm:"column:url;type:varchar(512)" json:"url"`

	Price    float64 `gorm:"column:price;not null" json:"price"`
	Currency string  `gorm:"column:currency;type:varchar(3);not null" json:"currency"`

	PaymentCycle types.PaymentCycle `gorm:"column:payment_cycle;type:varchar(16);not null;default:monthly" json:"payment_cycle"`
	// CustomDays is the interval length when PaymentCycle is custom_days; nil otherwise.
	CustomDays *int `gorm:"column:custom_days" json:"custom_days"`

	// StartDate and NextDueDate are calendar dates in YYYY-MM-DD form.
	StartDate   string `gorm:"column:start_date;type:varchar(10);not null" json:"start_date"`
	NextDueDate string `gorm:"column:next_due_date;type:varchar(10);not null" json:"next_due_date"`

	PaymentMethod string                   `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	Status        types.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null;default:active" json:"status"`

	NotifyEnabled bool `gorm:"column:notify_enabled;not null;default:false" json:"notify_enabled"`
	// NotifyDays is a comma-separated list of day thresholds, e.g. "7,3,1,0".
	NotifyDays string `gorm:"column:notify_days;type:varchar(64);not null;default:'7,3,1,0'" json:"notify_days"`
	// NotifyTime is the preferred delivery time in 24h HH:MM form.
	NotifyTime string `gorm:"column:notify_time;type:varchar(5);not null;default:'09:00'" json:"notify_time"`
	// NotifyChannelIDs is a JSON array of webhook channel ids.
	NotifyChannelIDs datatypes.JSON `gorm:"column:notify_channel_ids;type:jsonb;default:'[]'" json:"notify_channel_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ChannelIDs decodes NotifyChannelIDs, dropping anything that is not a
// positive integer. A malformed column yields an empty slice.
func (s *Subscription) ChannelIDs() []uint {
	if len(s.NotifyChannelIDs) == 0 {
		return nil
	}
	var raw []json.Number
	if err := json.Unmarshal(s.NotifyChannelIDs, &raw); err != nil {
		return nil
	}
	ids := make([]uint, 0, len(raw))
	for _, n := range raw {
		v, err := strconv.ParseInt(strings.TrimSpace(n.String()), 10, 64)
		if err != nil || v <= 0 {
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids
}
