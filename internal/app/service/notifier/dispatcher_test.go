package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/internal/app/service/webhook"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/pkg/config"
	"github.com/nebulahq/nebula/pkg/httpx"
)

type fakeSubs struct {
	subs map[uint]*models.Subscription
}

func (f *fakeSubs) Get(_ context.Context, id uint) (*models.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return s, nil
}

type fakeSettings struct {
	st *models.Settings
}

func (f *fakeSettings) Get(context.Context) (*models.Settings, error) {
	if f.st == nil {
		return nil, errors.New("settings row missing")
	}
	return f.st, nil
}

func (f *fakeSettings) Location(*models.Settings) *time.Location { return time.UTC }

type fakeGateway struct {
	channels  map[uint]*models.WebhookChannel
	renderErr map[uint]error
	ctxErr    error
}

func (f *fakeGateway) GetChannel(_ context.Context, id uint) (*models.WebhookChannel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, webhook.ErrChannelNotFound
	}
	return ch, nil
}

func (f *fakeGateway) BuildContextFromSubscription(_ context.Context, _ uint, _ *models.Settings) (*webhook.Context, error) {
	if f.ctxErr != nil {
		return nil, f.ctxErr
	}
	return &webhook.Context{Name: "Netflix", Price: "9.99", Currency: "USD"}, nil
}

func (f *fakeGateway) RenderPayload(ch *models.WebhookChannel, _ *webhook.Context) ([]byte, error) {
	if err := f.renderErr[ch.ID]; err != nil {
		return nil, err
	}
	return []byte(`{"channel":"` + ch.Name + `"}`), nil
}

type fakeEvents struct {
	messages []string
}

func (f *fakeEvents) Write(_ context.Context, _, _, message string, _ map[string]any) {
	f.messages = append(f.messages, message)
}

type httpCall struct {
	method string
	url    string
	body   []byte
}

type fakeHTTP struct {
	calls  []httpCall
	status int
	err    error
}

func (f *fakeHTTP) PostJSON(ctx context.Context, url string, body []byte, timeout time.Duration) (*httpx.Result, error) {
	return f.Do(ctx, "POST", url, nil, body, timeout)
}

func (f *fakeHTTP) Do(_ context.Context, method, url string, _ map[string]string, body []byte, _ time.Duration) (*httpx.Result, error) {
	f.calls = append(f.calls, httpCall{method: method, url: url, body: body})
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return &httpx.Result{Status: status, Body: []byte("ok")}, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func testConfig() *config.Config {
	return &config.Config{
		Webhook: config.WebhookConfig{TimeoutMS: 1000, UserAgent: "Nebula/0.2 (scheduled notification)"},
	}
}

func channelIDs(t *testing.T, ids ...uint) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(ids)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

func dispatchFixture(t *testing.T) (*Dispatcher, *fakeSubs, *fakeGateway, *fakeHTTP, *fakeEvents, *MemoryDedupStore) {
	subs := &fakeSubs{subs: map[uint]*models.Subscription{
		1: {
			ID: 1, Name: "Netflix", NextDueDate: "2026-03-10",
			NotifyEnabled:    true,
			NotifyChannelIDs: channelIDs(t, 10, 20),
		},
	}}
	gw := &fakeGateway{
		channels: map[uint]*models.WebhookChannel{
			10: {ID: 10, Name: "slack", URL: "https://hooks.example.com/a", Enabled: true},
			20: {ID: 20, Name: "ntfy", URL: "https://hooks.example.com/b", Enabled: true},
		},
		renderErr: map[uint]error{},
	}
	poster := &fakeHTTP{}
	events := &fakeEvents{}
	dedup := NewMemoryDedupStore()
	st := &fakeSettings{st: &models.Settings{ID: 1, Timezone: "UTC", BaseCurrency: "USD"}}
	clk := fixedClock{t: time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)}

	d := NewDispatcher(testConfig(), zap.NewNop().Sugar(), subs, gw, st, dedup, clk, poster, events)
	return d, subs, gw, poster, events, dedup
}

func TestDispatch_SendsToAllChannelsInOrder(t *testing.T) {
	d, _, _, poster, _, dedup := dispatchFixture(t)

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	require.Len(t, poster.calls, 2)
	assert.Equal(t, "https://hooks.example.com/a", poster.calls[0].url)
	assert.Equal(t, "https://hooks.example.com/b", poster.calls[1].url)
	assert.Equal(t, "POST", poster.calls[0].method)
	assert.JSONEq(t, `{"channel":"slack"}`, string(poster.calls[0].body))

	date, ok := dedup.Get(DedupKey{SubscriptionID: 1, Threshold: 3})
	require.True(t, ok)
	assert.Equal(t, "2026-03-07", date)
}

func TestDispatch_ChannelFailureDoesNotBlockOthers(t *testing.T) {
	d, _, gw, poster, events, dedup := dispatchFixture(t)
	gw.renderErr[10] = &webhook.TemplateError{}

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	// First channel fails at render; second is still posted.
	require.Len(t, poster.calls, 1)
	assert.Equal(t, "https://hooks.example.com/b", poster.calls[0].url)
	assert.Contains(t, events.messages, "template error")

	_, ok := dedup.Get(DedupKey{SubscriptionID: 1, Threshold: 3})
	assert.True(t, ok)
}

func TestDispatch_TransportErrorStillMarksAttempted(t *testing.T) {
	d, _, _, poster, events, dedup := dispatchFixture(t)
	poster.err = errors.New("connection refused")

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	// Both channels were tried despite the failures.
	assert.Len(t, poster.calls, 2)
	assert.Contains(t, events.messages, "request failed")

	_, ok := dedup.Get(DedupKey{SubscriptionID: 1, Threshold: 3})
	assert.True(t, ok)
}

func TestDispatch_Non2xxCountsAsFailed(t *testing.T) {
	d, _, _, poster, events, _ := dispatchFixture(t)
	poster.status = 500

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	assert.Len(t, poster.calls, 2)
	assert.Contains(t, events.messages, "notification failed")
}

func TestDispatch_DisabledChannelSkipped(t *testing.T) {
	d, _, gw, poster, _, _ := dispatchFixture(t)
	gw.channels[10].Enabled = false

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	require.Len(t, poster.calls, 1)
	assert.Equal(t, "https://hooks.example.com/b", poster.calls[0].url)
}

func TestDispatch_DeletedChannelSkipped(t *testing.T) {
	d, _, gw, poster, _, _ := dispatchFixture(t)
	delete(gw.channels, 10)

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	require.Len(t, poster.calls, 1)
	assert.Equal(t, "https://hooks.example.com/b", poster.calls[0].url)
}

func TestDispatch_NoChannelsStillMarksAttempted(t *testing.T) {
	d, subs, _, poster, _, dedup := dispatchFixture(t)
	subs.subs[1].NotifyChannelIDs = channelIDs(t)

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 0})

	assert.Empty(t, poster.calls)
	// The pair is stamped even with nothing to send, so it is not
	// re-evaluated every tick for the rest of the day.
	_, ok := dedup.Get(DedupKey{SubscriptionID: 1, Threshold: 0})
	assert.True(t, ok)
}

func TestDispatch_MissingSubscriptionMarksAttempted(t *testing.T) {
	d, _, _, poster, _, dedup := dispatchFixture(t)

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 99, Threshold: 3})

	assert.Empty(t, poster.calls)
	_, ok := dedup.Get(DedupKey{SubscriptionID: 99, Threshold: 3})
	assert.True(t, ok)
}

func TestDispatch_NotifyDisabledSubscription(t *testing.T) {
	d, subs, _, poster, _, _ := dispatchFixture(t)
	subs.subs[1].NotifyEnabled = false

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	assert.Empty(t, poster.calls)
}

func TestDispatch_ContextBuildFailure(t *testing.T) {
	d, _, gw, poster, _, dedup := dispatchFixture(t)
	gw.ctxErr = errors.New("conversion blew up")

	d.Dispatch(context.Background(), DuePair{SubscriptionID: 1, Threshold: 3})

	assert.Empty(t, poster.calls)
	_, ok := dedup.Get(DedupKey{SubscriptionID: 1, Threshold: 3})
	assert.True(t, ok)
}

func TestDispatchThenEvaluate_PairSuppressedForToday(t *testing.T) {
	d, _, _, _, _, dedup := dispatchFixture(t)
	ev := NewEvaluator(zap.NewNop().Sugar(), dedup)

	live := []*models.Subscription{{
		ID: 1, NextDueDate: "2026-03-10", NotifyEnabled: true,
		NotifyDays: "3", NotifyTime: "09:00",
	}}

	due := ev.Evaluate("2026-03-07", "09:00", live)
	require.Len(t, due, 1)

	d.Dispatch(context.Background(), due[0])

	// The next tick inside the window sees nothing to do.
	assert.Empty(t, ev.Evaluate("2026-03-07", "09:04", live))
	// Tomorrow days-left is 2, which is not a configured threshold.
	assert.Empty(t, ev.Evaluate("2026-03-08", "09:00", live))
}
