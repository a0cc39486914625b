// Package auth implements the optional single-password login. Sessions
// are stateless signed tokens so a restart never logs anyone out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/internal/platform/clock"
	"github.com/nebulahq/nebula/pkg/config"
)

var (
	ErrBadCredentials = errors.New("invalid password")
	ErrNotConfigured  = errors.New("auth not configured")
	ErrInvalidToken   = errors.New("invalid session token")
)

type Service struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	db       *gorm.DB
	settings *settings.Service
	clk      clock.Clock
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, st *settings.Service, clk clock.Clock) *Service {
	return &Service{cfg: cfg, log: log, db: db, settings: st, clk: clk}
}

// Status describes whether login is required and possible.
type Status struct {
	Enabled         bool `json:"enabled"`
	Configured      bool `json:"configured"`
	PublicDashboard bool `json:"public_dashboard"`
}

func (s *Service) Status(ctx context.Context) (*Status, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Enabled:         st.AuthEnabled,
		Configured:      st.PasswordHash != "",
		PublicDashboard: st.PublicDashboard,
	}, nil
}

// Login verifies the password and issues a session token.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	if st.PasswordHash == "" || s.cfg.Auth.Secret == "" {
		return "", ErrNotConfigured
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)) != nil {
		return "", ErrBadCredentials
	}

	now := s.clk.Now()
	ttl := time.Duration(s.cfg.Auth.SessionTTLHours) * time.Hour
	claims := jwt.StandardClaims{
		Subject:   "nebula",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	s.log.Infow("session created", "expires_at", now.Add(ttl))
	return token, nil
}

// ValidateToken checks the signature and expiry of a session token.
func (s *Service) ValidateToken(token string) error {
	if s.cfg.Auth.Secret == "" {
		return ErrNotConfigured
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.StandardClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Auth.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

// SetPassword stores a new password hash and flips auth on or off.
func (s *Service) SetPassword(ctx context.Context, password string, enabled bool) error {
	if len(password) < 8 {
		return &PasswordPolicyError{Msg: "password must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.db.WithContext(ctx).Model(&models.Settings{}).
		Where("id = ?", models.SettingsRowID).
		Updates(map[string]any{"password_hash": string(hash), "auth_enabled": enabled}).Error
	if err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	s.log.Infow("auth password updated", "enabled", enabled)
	return nil
}

type PasswordPolicyError struct{ Msg string }

func (e *PasswordPolicyError) Error() string { return e.Msg }
