package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nebulahq/nebula/pkg/config"
)

// New builds the application logger. Production gets JSON output; dev gets
// a human-readable console encoder with debug enabled so scheduler ticks
// are visible while developing.
func New(cfg *config.Config) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if cfg.Env == config.EnvProd {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.TimeKey = "time"
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

var Module = fx.Options(
	fx.Provide(New),
)
