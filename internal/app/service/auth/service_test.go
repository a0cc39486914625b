package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nebulahq/nebula/pkg/config"
)

func testAuthService(secret string) *Service {
	cfg := &config.Config{Auth: config.AuthConfig{Secret: secret, SessionTTLHours: 168}}
	return &Service{cfg: cfg, log: zap.NewNop().Sugar()}
}

func signToken(t *testing.T, secret string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.StandardClaims{
		Subject:   "nebula",
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	s := testAuthService("test-secret")
	now := time.Now()

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, "test-secret", now, now.Add(time.Hour))
		assert.NoError(t, s.ValidateToken(token))
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, "test-secret", now.Add(-2*time.Hour), now.Add(-time.Hour))
		assert.ErrorIs(t, s.ValidateToken(token), ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", now, now.Add(time.Hour))
		assert.ErrorIs(t, s.ValidateToken(token), ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.ErrorIs(t, s.ValidateToken("not.a.jwt"), ErrInvalidToken)
	})

	t.Run("unsigned algorithm rejected", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.StandardClaims{
			ExpiresAt: now.Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.ErrorIs(t, s.ValidateToken(unsigned), ErrInvalidToken)
	})

	t.Run("no secret configured", func(t *testing.T) {
		bare := testAuthService("")
		token := signToken(t, "test-secret", now, now.Add(time.Hour))
		assert.ErrorIs(t, bare.ValidateToken(token), ErrNotConfigured)
	})
}

func TestSetPassword_Policy(t *testing.T) {
	s := testAuthService("test-secret")

	// Too-short passwords are rejected before any persistence happens
	// (db is nil and would panic otherwise).
	err := s.SetPassword(context.Background(), "short", true)
	require.Error(t, err)
	var perr *PasswordPolicyError
	assert.ErrorAs(t, err, &perr)
}
