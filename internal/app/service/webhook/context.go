package webhook

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/internal/app/service/recurrence"
)

// DefaultPayload is the fixed payload shape used when a channel has no
// template. The event type is shared with the manual test action.
func DefaultPayload(ctx *Context) map[string]any {
	return map[string]any{
		"type":    "nebula.webhook.test",
		"message": fmt.Sprintf("Nebula webhook test for %s", ctx.Name),
		"now":     ctx.Now,
		"subscription": map[string]any{
			"name":             ctx.Name,
			"price":            ctx.Price,
			"currency":         ctx.Currency,
			"display_price":    ctx.DisplayPrice,
			"display_currency": ctx.DisplayCurrency,
			"days_left":        ctx.DaysLeft,
			"due_date":         ctx.DueDate,
		},
	}
}

// BuildTestContext fabricates a context for validating templates and for
// manual test sends that are not bound to a subscription.
func (s *Service) BuildTestContext(st *models.Settings) *Context {
	loc := s.settings.Location(st)
	today := clock.TodayISO(s.clk, loc)
	return &Context{
		Name:            "Nebula Test",
		Price:           "10.00",
		Currency:        "USD",
		DisplayPrice:    "10.00",
		DisplayCurrency: st.BaseCurrency,
		DaysLeft:        "0",
		DueDate:         today,
		Now:             s.clk.Now().UTC().Format(time.RFC3339),
	}
}

// BuildContextFromSubscription assembles the template context for one
// subscription. Currency conversion fails soft: a missing rate leaves the
// display fields equal to the original price and currency.
func (s *Service) BuildContextFromSubscription(ctx context.Context, subID uint, st *models.Settings) (*Context, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).First(&sub, subID).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscription %d: %w", subID, err)
	}

	loc := s.settings.Location(st)
	today := clock.TodayISO(s.clk, loc)

	price := formatPrice(sub.Price)
	displayPrice, displayCurrency := price, sub.Currency
	if st.ExchangeEnabled {
		if conv := s.conv.Convert(ctx, sub.Price, sub.Currency, st.BaseCurrency); conv != nil {
			displayPrice, displayCurrency = formatPrice(conv.Price), conv.Currency
		}
	}

	daysLeft, err := recurrence.DiffDays(today, sub.NextDueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to compute days left: %w", err)
	}

	return &Context{
		Name:            sub.Name,
		Price:           price,
		Currency:        sub.Currency,
		DisplayPrice:    displayPrice,
		DisplayCurrency: displayCurrency,
		DaysLeft:        strconv.Itoa(daysLeft),
		DueDate:         sub.NextDueDate,
		Now:             s.clk.Now().UTC().Format(time.RFC3339),
	}, nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
