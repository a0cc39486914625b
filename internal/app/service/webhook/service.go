// Package webhook owns channel CRUD validation, template rendering and the
// manual "test this webhook" action. The scheduled dispatcher shares the
// same rendering and validation routines.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nebulahq/nebula/internal/app/service/rates"
	"github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/httpx"
)

var (
	ErrChannelNotFound = errors.New("webhook channel not found")
	ErrInvalidURL      = errors.New("invalid webhook url")
	ErrNameRequired    = errors.New("name required")
)

type Service struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	db       *gorm.DB
	conv     rates.Converter
	clk      clock.Clock
	http     httpx.Client
	settings *settings.Service
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, conv rates.Converter, clk clock.Clock, http httpx.Client, st *settings.Service) *Service {
	return &Service{cfg: cfg, log: log, db: db, conv: conv, clk: clk, http: http, settings: st}
}

// GetChannel loads one channel by id.
func (s *Service) GetChannel(ctx context.Context, id uint) (*models.WebhookChannel, error) {
	var ch models.WebhookChannel
	if err := s.db.WithContext(ctx).First(&ch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// ListChannels returns all channels, newest first.
func (s *Service) ListChannels(ctx context.Context) ([]*models.WebhookChannel, error) {
	var rows []*models.WebhookChannel
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ChannelInput carries the user-editable channel fields.
type ChannelInput struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Template string `json:"template"`
	Enabled  bool   `json:"enabled"`
}

func (s *Service) validateChannelInput(ctx context.Context, in *ChannelInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if !isValidHTTPURL(in.URL) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, in.URL)
	}
	if strings.TrimSpace(in.Template) != "" {
		st, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		if err := ValidateTemplate(in.Template, s.BuildTestContext(st)); err != nil {
			return err
		}
	}
	return nil
}

// CreateChannel validates and stores a new channel. Templates must render
// to valid JSON against the test context before they are accepted.
func (s *Service) CreateChannel(ctx context.Context, in ChannelInput) (*models.WebhookChannel, error) {
	if err := s.validateChannelInput(ctx, &in); err != nil {
		return nil, err
	}
	ch := models.WebhookChannel{Name: in.Name, URL: in.URL, Template: in.Template, Enabled: in.Enabled}
	if err := s.db.WithContext(ctx).Create(&ch).Error; err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	s.log.Infow("webhook channel created", "id", ch.ID, "name", ch.Name)
	return &ch, nil
}

// UpdateChannel validates and overwrites an existing channel.
func (s *Service) UpdateChannel(ctx context.Context, id uint, in ChannelInput) (*models.WebhookChannel, error) {
	ch, err := s.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateChannelInput(ctx, &in); err != nil {
		return nil, err
	}
	ch.Name, ch.URL, ch.Template, ch.Enabled = in.Name, in.URL, in.Template, in.Enabled
	if err := s.db.WithContext(ctx).Save(ch).Error; err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	s.log.Infow("webhook channel updated", "id", ch.ID, "name", ch.Name)
	return ch, nil
}

// DeleteChannel removes a channel. Subscriptions referencing it keep the
// dangling id; dispatch skips ids that no longer resolve.
func (s *Service) DeleteChannel(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.WebhookChannel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	s.log.Infow("webhook channel deleted", "id", id)
	return nil
}

// TestResult is the outcome of a manual test send.
type TestResult struct {
	OK        bool   `json:"ok"`
	Status    int    `json:"status"`
	Response  string `json:"response"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// TestSend posts the channel's payload once, either against a real
// subscription's context or the synthetic test context. A template or
// transport failure is reported in the result, not as an error.
func (s *Service) TestSend(ctx context.Context, channelID uint, subscriptionID *uint) (*TestResult, error) {
	ch, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	s.log.Infow("webhook test start", "id", ch.ID, "name", ch.Name, "url", ch.URL, "enabled", ch.Enabled)

	var tctx *Context
	if subscriptionID != nil {
		tctx, err = s.BuildContextFromSubscription(ctx, *subscriptionID, st)
		if err != nil {
			s.log.Warnw("webhook test: falling back to test context", "err", err)
			tctx = nil
		}
	}
	if tctx == nil {
		tctx = s.BuildTestContext(st)
	}

	body, err := s.RenderPayload(ch, tctx)
	if err != nil {
		elapsed := time.Since(startedAt).Milliseconds()
		s.log.Errorw("webhook test: template render/parse failed", "id", ch.ID, "err", err)
		return &TestResult{OK: false, Status: 0, Response: fmt.Sprintf("template error: %v", err), ElapsedMS: elapsed}, nil
	}

	res, err := s.http.Do(ctx, "POST", ch.URL,
		map[string]string{"Content-Type": "application/json", "User-Agent": "Nebula/0.1 (webhook test)"},
		body, s.cfg.WebhookTimeout())
	elapsed := time.Since(startedAt).Milliseconds()
	if err != nil {
		msg := err.Error()
		isTimeout := errors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(msg), "timeout")
		if isTimeout {
			msg = "timeout"
		}
		s.log.Errorw("webhook test failed", "id", ch.ID, "elapsed_ms", elapsed, "err", err)
		return &TestResult{OK: false, Status: 0, Response: msg, ElapsedMS: elapsed}, nil
	}

	preview := string(res.Body)
	if len(preview) > 2000 {
		preview = preview[:2000]
	}
	s.log.Infow("webhook test done", "id", ch.ID, "status", res.Status, "elapsed_ms", elapsed)
	return &TestResult{OK: res.OK(), Status: res.Status, Response: preview, ElapsedMS: elapsed}, nil
}

// RenderPayload produces the JSON body for a channel: the rendered
// template when one is configured, else the default payload. The rendered
// template is re-validated so a stale template cannot emit broken JSON.
func (s *Service) RenderPayload(ch *models.WebhookChannel, tctx *Context) ([]byte, error) {
	if strings.TrimSpace(ch.Template) != "" {
		rendered := Render(ch.Template, tctx)
		var v any
		if err := json.Unmarshal([]byte(rendered), &v); err != nil {
			return nil, &TemplateError{cause: err}
		}
		return []byte(rendered), nil
	}
	return json.Marshal(DefaultPayload(tctx))
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
