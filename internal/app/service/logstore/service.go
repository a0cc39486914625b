// Package logstore persists curated application events (scheduler runs,
// webhook outcomes, backups, auth) into the logs table for the activity
// view. It is fire-and-forget: a failed write is reported via zap and
// otherwise swallowed.
package logstore

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/pkg/logctx"
)

const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 500
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Write asynchronously records an event. Meta may be nil.
func (s *Service) Write(ctx context.Context, level, scope, message string, meta map[string]any) {
	var metaJSON datatypes.JSON
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metaJSON = datatypes.JSON(b)
		}
	}
	entry := models.LogEntry{Level: level, Scope: scope, Message: message, Meta: metaJSON}
	go func() {
		if err := s.db.Create(&entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save log entry: %v", err)
		}
	}()
}

// Recent returns the newest entries, capped at MaxQueryLimit.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	var rows []*models.LogEntry
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
