// Package subscription owns CRUD and listing for tracked subscriptions.
// Write validation reuses the recurrence engine so a stored next_due_date
// is always consistent with the cycle (unless explicitly overridden).
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nebulahq/nebula/internal/app/service/recurrence"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/types"
)

const (
	defaultNotifyDays = "7,3,1,0"
	defaultNotifyTime = "09:00"
)

var ErrNotFound = errors.New("subscription not found")

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	cfg *config.Config
	log *zap.SugaredLogger
	db  *gorm.DB
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB) *Service {
	return &Service{cfg: cfg, log: log, db: db}
}

// Input carries the user-editable subscription fields.
type Input struct {
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	LogoURL string `json:"logo_url"`
	URL     string `json:"url"`

	Price    float64 `json:"price"`
	Currency string  `json:"currency"`

	PaymentCycle types.PaymentCycle `json:"payment_cycle"`
	CustomDays   *int               `json:"custom_days"`

	StartDate string `json:"start_date"`
	// NextDueDate, when set, overrides the cycle computation.
	NextDueDate string `json:"next_due_date"`

	PaymentMethod string                   `json:"payment_method"`
	Status        types.SubscriptionStatus `json:"status"`

	NotifyEnabled    bool   `json:"notify_enabled"`
	NotifyDays       string `json:"notify_days"`
	NotifyTime       string `json:"notify_time"`
	NotifyChannelIDs []uint `json:"notify_channel_ids"`
}

// validate normalizes in and returns the derived next due date.
func (s *Service) validate(in *Input) (nextDue string, err error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", invalid("name required")
	}
	in.Icon = strings.TrimSpace(in.Icon)
	if len(in.Icon) > 16 {
		return "", invalid("icon too long")
	}
	for _, u := range []string{in.URL, in.LogoURL} {
		if u != "" && !isValidHTTPURL(u) {
			return "", invalid("invalid url %q", u)
		}
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return "", invalid("invalid price")
	}
	in.Currency = types.NormalizeCurrency(in.Currency)
	if !types.IsValidCurrency(in.Currency) {
		return "", invalid("invalid currency %q", in.Currency)
	}
	if !in.PaymentCycle.Valid() {
		return "", invalid("invalid payment cycle %q", in.PaymentCycle)
	}
	if in.Status == "" {
		in.Status = types.SubscriptionStatusActive
	}

	nextDue, err = recurrence.ComputeNextDueDate(recurrence.NextDueDateInput{
		StartDate:           in.StartDate,
		Cycle:               in.PaymentCycle,
		CustomDays:          in.CustomDays,
		ExplicitNextDueDate: in.NextDueDate,
	})
	if err != nil {
		return "", invalid("invalid dates: %v", err)
	}

	in.NotifyDays = strings.TrimSpace(in.NotifyDays)
	if in.NotifyDays == "" {
		in.NotifyDays = defaultNotifyDays
	}
	for _, part := range strings.Split(in.NotifyDays, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && d < 0 {
			return "", invalid("invalid notify days %q", in.NotifyDays)
		}
	}
	in.NotifyTime = strings.TrimSpace(in.NotifyTime)
	if in.NotifyTime == "" {
		in.NotifyTime = defaultNotifyTime
	}
	if !isValidTimeHHMM(in.NotifyTime) {
		return "", invalid("invalid notify time %q", in.NotifyTime)
	}
	return nextDue, nil
}

func (s *Service) toModel(in *Input, nextDue string, out *models.Subscription) error {
	channelIDs := in.NotifyChannelIDs
	if channelIDs == nil {
		channelIDs = []uint{}
	}
	encoded, err := json.Marshal(channelIDs)
	if err != nil {
		return fmt.Errorf("failed to encode channel ids: %w", err)
	}

	out.Name = in.Name
	out.Icon = in.Icon
	out.LogoURL = in.LogoURL
	out.URL = in.URL
	out.Price = in.Price
	out.Currency = in.Currency
	out.PaymentCycle = in.PaymentCycle
	out.CustomDays = in.CustomDays
	out.StartDate = in.StartDate
	out.NextDueDate = nextDue
	out.PaymentMethod = in.PaymentMethod
	out.Status = in.Status
	out.NotifyEnabled = in.NotifyEnabled
	out.NotifyDays = in.NotifyDays
	out.NotifyTime = in.NotifyTime
	out.NotifyChannelIDs = datatypes.JSON(encoded)
	return nil
}

// Create validates and stores a new subscription.
func (s *Service) Create(ctx context.Context, in Input) (*models.Subscription, error) {
	nextDue, err := s.validate(&in)
	if err != nil {
		return nil, err
	}
	var sub models.Subscription
	if err := s.toModel(&in, nextDue, &sub); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	s.log.Infow("subscription created", "id", sub.ID, "name", sub.Name)
	return &sub, nil
}

// Update validates and overwrites an existing subscription.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	nextDue, err := s.validate(&in)
	if err != nil {
		return nil, err
	}
	if err := s.toModel(&in, nextDue, sub); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	s.log.Infow("subscription updated", "id", sub.ID, "name", sub.Name)
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Subscription{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	s.log.Infow("subscription deleted", "id", id)
	return nil
}

// ListNotifyEnabled returns every subscription with reminders switched on.
// The scheduler calls this once per tick.
func (s *Service) ListNotifyEnabled(ctx context.Context) ([]*models.Subscription, error) {
	var rows []*models.Subscription
	if err := s.db.WithContext(ctx).Where("notify_enabled = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list notify-enabled subscriptions: %w", err)
	}
	return rows, nil
}

// filtersAnd combines multiple CommonFilter into a single expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ScanRequest struct {
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
	Filters   []*types.CommonFilter `json:"filters"`
}

type ScanResponse struct {
	Items []*models.Subscription `json:"items"`
	Total int64                  `json:"total"`
}

// Scan implements paginated listing with filters.
func (s *Service) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Subscription{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var rows []*models.Subscription
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return &ScanResponse{Items: rows, Total: total}, nil
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isValidTimeHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for i, r := range s {
		if i == 2 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h <= 23 && m <= 59
}
