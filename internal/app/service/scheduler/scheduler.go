// Package scheduler drives the notification pipeline: a fixed-interval
// ticker that evaluates due reminders, fans out dispatches and triggers
// the auto-backup check.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nebulahq/nebula/internal/app/service/backup"
	"github.com/nebulahq/nebula/internal/app/service/notifier"
	"github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/pkg/config"
)

// SubscriptionLister provides the candidate set for a tick.
type SubscriptionLister interface {
	ListNotifyEnabled(ctx context.Context) ([]*models.Subscription, error)
}

// SettingsSource exposes the settings row and its resolved timezone.
type SettingsSource interface {
	Get(ctx context.Context) (*models.Settings, error)
	Location(st *models.Settings) *time.Location
}

// DispatchRunner delivers one due pair. Implementations never return an
// error; failures are absorbed and recorded downstream.
type DispatchRunner interface {
	Dispatch(ctx context.Context, pair notifier.DuePair)
}

// BackupRunner is the auto-backup hook invoked once per tick.
type BackupRunner interface {
	MaybeRunAutoBackup(ctx context.Context)
}

type Service struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	subs       SubscriptionLister
	evaluator  *notifier.Evaluator
	dispatcher DispatchRunner
	settings   SettingsSource
	backup     BackupRunner
	clk        clock.Clock

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, subs SubscriptionLister, ev *notifier.Evaluator, disp DispatchRunner, st SettingsSource, bk BackupRunner, clk clock.Clock) *Service {
	return &Service{
		cfg: cfg, log: log, subs: subs,
		evaluator: ev, dispatcher: disp,
		settings: st, backup: bk, clk: clk,
		stop: make(chan struct{}),
	}
}

// RunTick performs one scheduler pass: evaluate due pairs and start their
// dispatches. Dispatches are not awaited; each runs in its own goroutine
// with a recover boundary so one bad subscription can never stall a tick.
func (s *Service) RunTick(ctx context.Context) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		s.log.Errorw("scheduler: settings not found", "err", err)
		return
	}
	loc := s.settings.Location(st)
	today := clock.TodayISO(s.clk, loc)
	now := clock.NowHHMM(s.clk, loc)

	s.log.Debugw("scheduler: checking notifications", "today", today, "now", now)

	subs, err := s.subs.ListNotifyEnabled(ctx)
	if err != nil {
		s.log.Errorw("scheduler: failed to load subscriptions", "err", err)
		return
	}

	for _, pair := range s.evaluator.Evaluate(today, now, subs) {
		s.spawn(func() { s.dispatcher.Dispatch(ctx, pair) })
	}

	// The auto-backup check shares the tick cadence but is otherwise
	// unrelated to notification state.
	s.spawn(func() { s.backup.MaybeRunAutoBackup(ctx) })
}

// spawn runs fn on its own goroutine behind a recover boundary. Panics
// are logged and absorbed; the ticker never sees them.
func (s *Service) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("scheduler: task panicked", "panic", r)
			}
		}()
		fn()
	}()
}

func (s *Service) loop() {
	defer s.wg.Done()

	// First pass runs immediately at startup, then on every tick.
	s.RunTick(context.Background())

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunTick(context.Background())
		case <-s.stop:
			return
		}
	}
}

// registerLifecycle starts the ticker on app start and, on stop, lets
// in-flight dispatches drain until the shutdown deadline expires.
func registerLifecycle(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.wg.Add(1)
			go s.loop()
			s.log.Infow("scheduler started", "interval_minutes", s.cfg.Scheduler.IntervalMinutes)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			done := make(chan struct{})
			go func() {
				s.wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				s.log.Infow("scheduler stopped")
			case <-ctx.Done():
				s.log.Warnw("scheduler stopped with dispatches still in flight")
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(func(s *subscription.Service) SubscriptionLister { return s }),
	fx.Provide(func(s *settings.Service) SettingsSource { return s }),
	fx.Provide(func(d *notifier.Dispatcher) DispatchRunner { return d }),
	fx.Provide(func(b *backup.Service) BackupRunner { return b }),
	fx.Provide(NewService),
	fx.Invoke(registerLifecycle),
)
