// Package notifier evaluates which subscription reminders are due and
// fans the resulting notifications out to their webhook channels.
package notifier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/internal/app/service/webhook"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/httpx"
)

// SubscriptionSource loads subscriptions for dispatch.
type SubscriptionSource interface {
	Get(ctx context.Context, id uint) (*models.Subscription, error)
}

// SettingsSource exposes the settings row and its resolved timezone.
type SettingsSource interface {
	Get(ctx context.Context) (*models.Settings, error)
	Location(st *models.Settings) *time.Location
}

// WebhookGateway covers the webhook operations the dispatcher needs:
// channel lookup, template context assembly and payload rendering.
type WebhookGateway interface {
	GetChannel(ctx context.Context, id uint) (*models.WebhookChannel, error)
	BuildContextFromSubscription(ctx context.Context, subID uint, st *models.Settings) (*webhook.Context, error)
	RenderPayload(ch *models.WebhookChannel, tctx *webhook.Context) ([]byte, error)
}

// EventSink records dispatch outcomes for the in-app log viewer.
type EventSink interface {
	Write(ctx context.Context, level, source, message string, payload map[string]any)
}

// Dispatcher delivers one due pair to all of its configured channels.
// Channel failures are isolated: a bad template or unreachable endpoint
// never blocks the remaining channels, and nothing here returns an error
// to the scheduler loop.
type Dispatcher struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	subs     SubscriptionSource
	webhooks WebhookGateway
	settings SettingsSource
	dedup    DedupStore
	clk      clock.Clock
	http     httpx.Client
	events   EventSink
}

func NewDispatcher(cfg *config.Config, log *zap.SugaredLogger, subs SubscriptionSource, wh WebhookGateway, st SettingsSource, dedup DedupStore, clk clock.Clock, http httpx.Client, events EventSink) *Dispatcher {
	return &Dispatcher{cfg: cfg, log: log, subs: subs, webhooks: wh, settings: st, dedup: dedup, clk: clk, http: http, events: events}
}

// Dispatch handles one due pair end to end. Whatever happens per channel,
// the dedup entry for the pair is written exactly once at the end so the
// same pair cannot fire again today.
func (d *Dispatcher) Dispatch(ctx context.Context, pair DuePair) {
	st, err := d.settings.Get(ctx)
	if err != nil {
		d.log.Errorw("dispatch: settings not found", "err", err)
		return
	}

	defer d.markAttempted(pair, st)

	sub, err := d.subs.Get(ctx, pair.SubscriptionID)
	if err != nil {
		if !errors.Is(err, subscription.ErrNotFound) {
			d.log.Errorw("dispatch: failed to load subscription", "sub_id", pair.SubscriptionID, "err", err)
		}
		return
	}
	if !sub.NotifyEnabled {
		return
	}

	channelIDs := sub.ChannelIDs()
	if len(channelIDs) == 0 {
		d.log.Warnw("dispatch: no channels configured", "sub_id", sub.ID)
		return
	}

	tctx, err := d.webhooks.BuildContextFromSubscription(ctx, sub.ID, st)
	if err != nil {
		d.log.Errorw("dispatch: failed to build context", "sub_id", sub.ID, "err", err)
		return
	}

	// Channels are sent strictly in configured order; only pairs run
	// concurrently with each other.
	for _, channelID := range channelIDs {
		d.sendToChannel(ctx, sub, pair, channelID, tctx)
	}
}

func (d *Dispatcher) sendToChannel(ctx context.Context, sub *models.Subscription, pair DuePair, channelID uint, tctx *webhook.Context) {
	ch, err := d.webhooks.GetChannel(ctx, channelID)
	if err != nil || !ch.Enabled {
		dispatchTotal.WithLabelValues(outcomeSkipped).Inc()
		return
	}

	body, err := d.webhooks.RenderPayload(ch, tctx)
	if err != nil {
		dispatchTotal.WithLabelValues(outcomeTemplateError).Inc()
		d.log.Errorw("dispatch: template error", "sub_id", sub.ID, "channel_id", channelID, "err", err)
		d.events.Write(ctx, "error", "scheduler.webhook", "template error", map[string]any{
			"sub_id": sub.ID, "channel_id": channelID, "error": err.Error(),
		})
		return
	}

	start := time.Now()
	res, err := d.http.Do(ctx, "POST", ch.URL,
		map[string]string{"Content-Type": "application/json", "User-Agent": d.cfg.Webhook.UserAgent},
		body, d.cfg.WebhookTimeout())
	elapsed := time.Since(start)
	dispatchDuration.Observe(float64(elapsed.Milliseconds()))

	if err != nil {
		dispatchTotal.WithLabelValues(outcomeFailed).Inc()
		d.log.Errorw("dispatch: request failed",
			"sub_id", sub.ID, "channel_id", channelID, "elapsed_ms", elapsed.Milliseconds(), "err", err)
		d.events.Write(ctx, "error", "scheduler.webhook", "request failed", map[string]any{
			"sub_id": sub.ID, "channel_id": channelID, "error": err.Error(),
		})
		return
	}

	outcome := outcomeSuccess
	logFn := d.log.Infow
	level := "info"
	if !res.OK() {
		outcome = outcomeFailed
		logFn = d.log.Warnw
		level = "warn"
	}
	dispatchTotal.WithLabelValues(outcome).Inc()
	logFn("dispatch: notification "+outcome,
		"sub_id", sub.ID, "sub_name", sub.Name,
		"channel_id", ch.ID, "channel_name", ch.Name,
		"days_before", pair.Threshold, "status", res.Status,
		"elapsed_ms", elapsed.Milliseconds())
	d.events.Write(ctx, level, "scheduler.webhook", "notification "+outcome, map[string]any{
		"sub_id": sub.ID, "sub_name": sub.Name,
		"channel_id": ch.ID, "channel_name": ch.Name,
		"days_before": pair.Threshold, "status": res.Status,
	})
}

// markAttempted stamps the dedup entry with today's date in the
// configured timezone. Runs once per due pair per tick regardless of
// per-channel outcomes, including the zero-channel case.
func (d *Dispatcher) markAttempted(pair DuePair, st *models.Settings) {
	today := clock.TodayISO(d.clk, d.settings.Location(st))
	d.dedup.Set(DedupKey{SubscriptionID: pair.SubscriptionID, Threshold: pair.Threshold}, today)
}
