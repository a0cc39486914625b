package app

import (
	"time"

	"github.com/nebulahq/nebula/internal/app/api/server"
	"github.com/nebulahq/nebula/internal/app/service/auth"
	"github.com/nebulahq/nebula/internal/app/service/backup"
	"github.com/nebulahq/nebula/internal/app/service/logstore"
	"github.com/nebulahq/nebula/internal/app/service/notifier"
	"github.com/nebulahq/nebula/internal/app/service/rates"
	"github.com/nebulahq/nebula/internal/app/service/scheduler"
	"github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/internal/app/service/webhook"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/internal/platform/db"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/httpx"
	"github.com/nebulahq/nebula/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	clock.Module,
	httpx.Module,
	server.Module,
	settings.Module,
	logstore.Module,
	rates.Module,
	webhook.Module,
	notifier.Module,
	subscription.Module,
	backup.Module,
	auth.Module,
	scheduler.Module,
)
