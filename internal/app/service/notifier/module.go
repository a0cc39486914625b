package notifier

import (
	"go.uber.org/fx"

	"github.com/nebulahq/nebula/internal/app/service/logstore"
	"github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/internal/app/service/webhook"
)

// Module exposes the evaluator, dispatcher and in-memory dedup store via Fx.
// The dispatcher takes narrow interfaces; the concrete services are bound here.
var Module = fx.Options(
	fx.Provide(func() DedupStore { return NewMemoryDedupStore() }),
	fx.Provide(func(s *subscription.Service) SubscriptionSource { return s }),
	fx.Provide(func(s *settings.Service) SettingsSource { return s }),
	fx.Provide(func(s *webhook.Service) WebhookGateway { return s }),
	fx.Provide(func(s *logstore.Service) EventSink { return s }),
	fx.Provide(NewEvaluator),
	fx.Provide(NewDispatcher),
)
