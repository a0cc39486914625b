// Package backup snapshots the data tables to a WebDAV share and prunes
// old snapshots per the retention setting. The scheduler invokes the auto
// check on every tick.
package backup

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nebulahq/nebula/internal/app/service/logstore"
	"github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/httpx"
)

const (
	webdavBackupDir      = "nebula-backups"
	singleBackupFilename = "nebula-backup.json"
	backupFormatVersion  = "1.0"
	webdavTimeout        = 30 * time.Second
)

var ErrWebdavNotConfigured = errors.New("webdav backup not configured")

var backupFileRe = regexp.MustCompile(`nebula-backup(?:-[\w-]+)?\.json`)

// backedUpTables is the set of tables included in a snapshot.
var backedUpTables = []string{"settings", "subscriptions", "webhook_channels", "exchange_rates"}

type backupFile struct {
	Version   string                      `json:"version"`
	Timestamp string                      `json:"timestamp"`
	Data      map[string][]map[string]any `json:"data"`
}

type Service struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	db       *gorm.DB
	http     httpx.Client
	clk      clock.Clock
	settings *settings.Service
	events   *logstore.Service
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, http httpx.Client, clk clock.Clock, st *settings.Service, events *logstore.Service) *Service {
	return &Service{cfg: cfg, log: log, db: db, http: http, clk: clk, settings: st, events: events}
}

// MaybeRunAutoBackup runs a backup when auto-backup is enabled and the
// last successful one is older than the configured interval. Errors are
// recorded and swallowed; a failed backup never disturbs the caller.
func (s *Service) MaybeRunAutoBackup(ctx context.Context) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		s.log.Errorw("auto-backup: settings not found", "err", err)
		return
	}
	if !st.BackupAutoEnabled || st.BackupWebdavURL == "" {
		return
	}

	interval := time.Duration(st.BackupIntervalHours) * time.Hour
	var last models.BackupRecord
	err = s.db.WithContext(ctx).
		Where("type = ? AND status = ?", models.BackupTypeAuto, models.BackupStatusSuccess).
		Order("id DESC").First(&last).Error
	if err == nil && s.clk.Now().Sub(last.CreatedAt) < interval {
		return
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Errorw("auto-backup: failed to read backup history", "err", err)
		return
	}

	if err := s.RunBackup(ctx, st, models.BackupTypeAuto); err != nil {
		s.log.Errorw("auto-backup failed", "err", err)
	}
}

// RunBackup snapshots the data tables, uploads the snapshot and prunes
// older snapshots beyond the retention count. An audit row is written
// either way.
func (s *Service) RunBackup(ctx context.Context, st *models.Settings, typ models.BackupType) error {
	err := s.runBackup(ctx, st)

	record := models.BackupRecord{Type: typ, Status: models.BackupStatusSuccess, Message: "backup uploaded"}
	level, msg := "info", "backup completed"
	if err != nil {
		record.Status = models.BackupStatusFailed
		record.Message = err.Error()
		level, msg = "error", "backup failed"
	}
	if dbErr := s.db.WithContext(ctx).Create(&record).Error; dbErr != nil {
		s.log.Errorw("failed to record backup result", "err", dbErr)
	}
	s.events.Write(ctx, level, "backup", msg, map[string]any{"type": string(typ)})
	return err
}

func (s *Service) runBackup(ctx context.Context, st *models.Settings) error {
	if st.BackupWebdavURL == "" || st.BackupWebdavUsername == "" {
		return ErrWebdavNotConfigured
	}

	retention := st.BackupRetentionCount
	if retention < 1 {
		retention = 1
	} else if retention > 100 {
		retention = 100
	}

	timestamp := s.clk.Now().UTC().Format(time.RFC3339)
	filename := singleBackupFilename
	if retention > 1 {
		sanitized := strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)
		filename = fmt.Sprintf("nebula-backup-%s.json", sanitized)
	}

	snapshot := backupFile{Version: backupFormatVersion, Timestamp: timestamp, Data: map[string][]map[string]any{}}
	for _, table := range backedUpTables {
		var rows []map[string]any
		if err := s.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
			s.log.Warnw("backup: failed to snapshot table", "table", table, "err", err)
			continue
		}
		snapshot.Data[table] = rows
	}
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	dirURL, err := s.ensureDirectory(ctx, st)
	if err != nil {
		return err
	}

	fileURL := joinURL(dirURL, filename)
	res, err := s.http.Do(ctx, "PUT", fileURL, map[string]string{
		"Authorization": basicAuth(st.BackupWebdavUsername, st.BackupWebdavPassword),
		"Content-Type":  "application/json",
	}, body, webdavTimeout)
	if err != nil {
		return fmt.Errorf("webdav upload failed: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("webdav upload failed: http %d", res.Status)
	}

	if retention > 1 {
		if err := s.pruneOldBackups(ctx, st, dirURL, retention); err != nil {
			s.log.Warnw("backup: retention prune failed", "err", err)
		}
	}
	return nil
}

// ensureDirectory creates the backup collection; 405 means it already exists.
func (s *Service) ensureDirectory(ctx context.Context, st *models.Settings) (string, error) {
	dirURL := joinURL(strings.TrimRight(st.BackupWebdavURL, "/"), webdavBackupDir)
	res, err := s.http.Do(ctx, "MKCOL", dirURL, map[string]string{
		"Authorization": basicAuth(st.BackupWebdavUsername, st.BackupWebdavPassword),
	}, nil, webdavTimeout)
	if err != nil {
		return "", fmt.Errorf("webdav directory creation failed: %w", err)
	}
	if !res.OK() && res.Status != 405 {
		return "", fmt.Errorf("webdav directory creation failed: http %d", res.Status)
	}
	return dirURL, nil
}

func (s *Service) pruneOldBackups(ctx context.Context, st *models.Settings, dirURL string, retention int) error {
	res, err := s.http.Do(ctx, "PROPFIND", dirURL, map[string]string{
		"Authorization": basicAuth(st.BackupWebdavUsername, st.BackupWebdavPassword),
		"Depth":         "1",
	}, nil, webdavTimeout)
	if err != nil {
		return fmt.Errorf("webdav list failed: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("webdav list failed: http %d", res.Status)
	}

	names := lo.Uniq(backupFileRe.FindAllString(string(res.Body), -1))
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) <= retention {
		return nil
	}

	for _, name := range names[retention:] {
		del, err := s.http.Do(ctx, "DELETE", joinURL(dirURL, name), map[string]string{
			"Authorization": basicAuth(st.BackupWebdavUsername, st.BackupWebdavPassword),
		}, nil, webdavTimeout)
		if err != nil {
			return fmt.Errorf("webdav delete failed: %w", err)
		}
		if !del.OK() && del.Status != 404 {
			return fmt.Errorf("webdav delete failed: http %d", del.Status)
		}
	}
	return nil
}

// Records returns recent backup audit rows, newest first.
func (s *Service) Records(ctx context.Context, limit int) ([]*models.BackupRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []*models.BackupRecord
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func joinURL(base string, segments ...string) string {
	encoded := lo.Map(segments, func(s string, _ int) string { return url.PathEscape(s) })
	return strings.TrimRight(base, "/") + "/" + strings.Join(encoded, "/")
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
