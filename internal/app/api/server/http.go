package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nebulahq/nebula/docs"
	"github.com/nebulahq/nebula/internal/app/api/handlers"
	authsvc "github.com/nebulahq/nebula/internal/app/service/auth"
	bksvc "github.com/nebulahq/nebula/internal/app/service/backup"
	"github.com/nebulahq/nebula/internal/app/service/logstore"
	"github.com/nebulahq/nebula/internal/app/service/rates"
	setsvc "github.com/nebulahq/nebula/internal/app/service/settings"
	subsvc "github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/internal/app/service/webhook"
	cfgpkg "github.com/nebulahq/nebula/pkg/config"

	mw "github.com/nebulahq/nebula/internal/app/api/middleware"

	metrics "github.com/nebulahq/nebula/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log           *zap.SugaredLogger
	Cfg           *cfgpkg.Config
	Auth          *authsvc.Service
	Subscriptions *subsvc.Service
	Webhooks      *webhook.Service
	Settings      *setsvc.Service
	Rates         *rates.Service
	Backup        *bksvc.Service
	Logs          *logstore.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: health, swagger and the login endpoints
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	handlers.RegisterAuthRoutes(pub.Group("/api/v1"), d.Auth)

	// Everything else sits behind the optional session auth.
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware(), mw.AuthMiddleware(d.Auth))
	handlers.RegisterSubscriptionRoutes(apiV1, d.Subscriptions)
	handlers.RegisterWebhookRoutes(apiV1, d.Webhooks)
	handlers.RegisterSettingsRoutes(apiV1, d.Settings, d.Rates)
	handlers.RegisterBackupRoutes(apiV1, d.Backup, d.Settings)
	handlers.RegisterLogRoutes(apiV1, d.Logs)
	handlers.RegisterAuthAdminRoutes(apiV1, d.Auth)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
