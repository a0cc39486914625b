package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPaused   SubscriptionStatus = "paused"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

type PaymentCycle string

const (
	PaymentCycleMonthly    PaymentCycle = "monthly"
	PaymentCycleYearly     PaymentCycle = "yearly"
	PaymentCycleCustomDays PaymentCycle = "custom_days"
)

func (c PaymentCycle) Valid() bool {
	switch c {
	case PaymentCycleMonthly, PaymentCycleYearly, PaymentCycleCustomDays:
		return true
	}
	return false
}
