package rates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/pkg/config"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func testService(at time.Time) *Service {
	cfg := &config.Config{Exchange: config.ExchangeConfig{CacheHours: 12, FetchTimeoutMS: 1000}}
	return &Service{cfg: cfg, log: zap.NewNop().Sugar(), clk: fixedClock{t: at}}
}

func TestConvert_IdentityNeverTouchesStore(t *testing.T) {
	// db is nil; an identity conversion must short-circuit before any query.
	s := testService(time.Now())

	got := s.Convert(context.Background(), 9.99, "USD", "USD")
	require.NotNil(t, got)
	assert.Equal(t, 9.99, got.Price)
	assert.Equal(t, "USD", got.Currency)
}

func TestUpdateRates_Preconditions(t *testing.T) {
	s := testService(time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC))

	_, err := s.UpdateRates(context.Background(), &models.Settings{ExchangeEnabled: false}, false)
	assert.ErrorIs(t, err, ErrExchangeDisabled)

	_, err = s.UpdateRates(context.Background(), &models.Settings{ExchangeEnabled: true}, false)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestUpdateRates_FreshnessWindow(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	s := testService(now)

	recent := now.Add(-1 * time.Hour)
	st := &models.Settings{
		ExchangeEnabled: true,
		ExchangeAPIKey:  "key",
		BaseCurrency:    "CNY",
		LastRateUpdate:  &recent,
	}

	// Inside the window: skipped without a fetch (http client is nil and
	// would panic if touched).
	res, err := s.UpdateRates(context.Background(), st, false)
	require.NoError(t, err)
	assert.False(t, res.Updated)
}

func TestIsRecent(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	s := testService(now)

	assert.False(t, s.isRecent(nil))

	in := now.Add(-11 * time.Hour)
	assert.True(t, s.isRecent(&in))

	out := now.Add(-13 * time.Hour)
	assert.False(t, s.isRecent(&out))
}
