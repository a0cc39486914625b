// Package rates caches exchange rates relative to the configured base
// currency and converts subscription prices for display.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/httpx"
)

var (
	ErrExchangeDisabled = errors.New("exchange is disabled")
	ErrMissingAPIKey    = errors.New("missing exchange api key")
)

// Converted is the result of a successful currency conversion.
type Converted struct {
	Price    float64
	Currency string
}

// Converter is the conversion function consumed by the webhook context
// builder. A nil result means no usable rate was cached.
type Converter interface {
	Convert(ctx context.Context, price float64, fromCurrency, toCurrency string) *Converted
}

type Service struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	db   *gorm.DB
	http httpx.Client
	clk  clock.Clock
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, http httpx.Client, clk clock.Clock) *Service {
	return &Service{cfg: cfg, log: log, db: db, http: http, clk: clk}
}

// Convert translates price from fromCurrency into toCurrency using the
// cached rate table. Identity conversions never touch the database. A
// missing, zero or negative rate yields nil so callers can fall back to
// the original amount.
func (s *Service) Convert(ctx context.Context, price float64, fromCurrency, toCurrency string) *Converted {
	if fromCurrency == toCurrency {
		return &Converted{Price: price, Currency: toCurrency}
	}
	var row models.ExchangeRate
	err := s.db.WithContext(ctx).First(&row, "currency_code = ?", fromCurrency).Error
	if err != nil || row.Rate <= 0 || math.IsNaN(row.Rate) || math.IsInf(row.Rate, 0) {
		return nil
	}
	converted := math.Round(price/row.Rate*100) / 100
	return &Converted{Price: converted, Currency: toCurrency}
}

// ratesResponse is the exchangerate-api.com v6 payload shape.
type ratesResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// UpdateResult reports whether a fetch actually happened.
type UpdateResult struct {
	Updated bool       `json:"updated"`
	At      *time.Time `json:"at,omitempty"`
}

// UpdateRates fetches the latest rate table for the base currency and
// upserts it. Unless force is set, a fetch within the freshness window is
// skipped.
func (s *Service) UpdateRates(ctx context.Context, st *models.Settings, force bool) (*UpdateResult, error) {
	if !st.ExchangeEnabled {
		return nil, ErrExchangeDisabled
	}
	if st.ExchangeAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if !force && s.isRecent(st.LastRateUpdate) {
		return &UpdateResult{Updated: false}, nil
	}

	endpoint := fmt.Sprintf("https://v6.exchangerate-api.com/v6/%s/latest/%s",
		url.PathEscape(st.ExchangeAPIKey), url.PathEscape(st.BaseCurrency))

	res, err := s.http.Do(ctx, "GET", endpoint, nil, nil, s.cfg.ExchangeFetchTimeout())
	if err != nil {
		return nil, fmt.Errorf("rate api request failed: %w", err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("rate api http %d", res.Status)
	}

	var data ratesResponse
	if err := json.Unmarshal(res.Body, &data); err != nil {
		return nil, fmt.Errorf("rate api json parse failed: %w", err)
	}
	if data.Result != "success" || data.ConversionRates == nil {
		return nil, fmt.Errorf("rate api result not success")
	}

	now := s.clk.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for code, rate := range data.ConversionRates {
			if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
				continue
			}
			row := models.ExchangeRate{CurrencyCode: code, Rate: rate, UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "currency_code"}},
				DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Settings{}).
			Where("id = ?", models.SettingsRowID).
			Update("last_rate_update", now).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store rates: %w", err)
	}

	s.log.Infow("exchange rates updated", "base", st.BaseCurrency, "count", len(data.ConversionRates))
	return &UpdateResult{Updated: true, At: &now}, nil
}

func (s *Service) isRecent(last *time.Time) bool {
	if last == nil {
		return false
	}
	window := time.Duration(s.cfg.Exchange.CacheHours) * time.Hour
	return s.clk.Now().Sub(*last) < window
}
