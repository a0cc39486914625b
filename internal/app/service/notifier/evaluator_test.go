package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nebulahq/nebula/internal/models"
)

func newTestEvaluator(dedup DedupStore) *Evaluator {
	return NewEvaluator(zap.NewNop().Sugar(), dedup)
}

func sub(id uint, nextDue, notifyDays, notifyTime string) *models.Subscription {
	return &models.Subscription{
		ID:            id,
		Name:          "Netflix",
		NextDueDate:   nextDue,
		NotifyEnabled: true,
		NotifyDays:    notifyDays,
		NotifyTime:    notifyTime,
	}
}

func TestEvaluate_TimeGate(t *testing.T) {
	tests := []struct {
		name       string
		notifyTime string
		now        string
		wantDue    bool
	}{
		{name: "exact minute", notifyTime: "09:00", now: "09:00", wantDue: true},
		{name: "two minutes late", notifyTime: "09:00", now: "09:02", wantDue: true},
		{name: "five minutes late", notifyTime: "09:00", now: "09:05", wantDue: true},
		{name: "six minutes late", notifyTime: "09:00", now: "09:06", wantDue: false},
		{name: "four minutes early", notifyTime: "09:00", now: "08:56", wantDue: false},
		{name: "window does not cross the hour", notifyTime: "00:58", now: "01:02", wantDue: false},
		{name: "within hour near top", notifyTime: "00:58", now: "00:55", wantDue: true},
		{name: "empty notify_time defaults to 09:00", notifyTime: "", now: "09:03", wantDue: true},
		{name: "malformed notify_time is skipped", notifyTime: "9am", now: "09:00", wantDue: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := newTestEvaluator(NewMemoryDedupStore())
			subs := []*models.Subscription{sub(1, "2026-03-10", "3", tt.notifyTime)}
			due := ev.Evaluate("2026-03-07", tt.now, subs)
			if tt.wantDue {
				require.Len(t, due, 1)
				assert.Equal(t, DuePair{SubscriptionID: 1, Threshold: 3}, due[0])
			} else {
				assert.Empty(t, due)
			}
		})
	}
}

func TestEvaluate_Thresholds(t *testing.T) {
	ev := newTestEvaluator(NewMemoryDedupStore())

	tests := []struct {
		name    string
		today   string
		nextDue string
		days    string
		want    []DuePair
	}{
		{name: "seven days out", today: "2026-03-03", nextDue: "2026-03-10", days: "7,3,1,0", want: []DuePair{{1, 7}}},
		{name: "due today", today: "2026-03-10", nextDue: "2026-03-10", days: "7,3,1,0", want: []DuePair{{1, 0}}},
		{name: "no matching threshold", today: "2026-03-05", nextDue: "2026-03-10", days: "7,3,1,0", want: nil},
		{name: "past due never matches", today: "2026-03-12", nextDue: "2026-03-10", days: "7,3,1,0", want: nil},
		{name: "duplicate thresholds collapse", today: "2026-03-07", nextDue: "2026-03-10", days: "3,3,3", want: []DuePair{{1, 3}}},
		{name: "empty threshold list", today: "2026-03-07", nextDue: "2026-03-10", days: "", want: nil},
		{name: "bad next_due_date is skipped", today: "2026-03-07", nextDue: "not-a-date", days: "3", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := ev.Evaluate(tt.today, "09:00", []*models.Subscription{sub(1, tt.nextDue, tt.days, "09:00")})
			assert.Equal(t, tt.want, due)
		})
	}
}

func TestEvaluate_SkipsDisabled(t *testing.T) {
	ev := newTestEvaluator(NewMemoryDedupStore())
	s := sub(1, "2026-03-10", "3", "09:00")
	s.NotifyEnabled = false
	assert.Empty(t, ev.Evaluate("2026-03-07", "09:00", []*models.Subscription{s}))
}

func TestEvaluate_MalformedNow(t *testing.T) {
	ev := newTestEvaluator(NewMemoryDedupStore())
	assert.Nil(t, ev.Evaluate("2026-03-07", "25:00", []*models.Subscription{sub(1, "2026-03-10", "3", "09:00")}))
}

func TestEvaluate_DedupSuppression(t *testing.T) {
	dedup := NewMemoryDedupStore()
	ev := newTestEvaluator(dedup)
	subs := []*models.Subscription{sub(1, "2026-03-10", "7,3", "09:00")}

	due := ev.Evaluate("2026-03-07", "09:00", subs)
	require.Equal(t, []DuePair{{SubscriptionID: 1, Threshold: 3}}, due)

	// Evaluate never writes the store; a second pass still reports the pair.
	due = ev.Evaluate("2026-03-07", "09:02", subs)
	require.Equal(t, []DuePair{{SubscriptionID: 1, Threshold: 3}}, due)

	// Once the dispatcher has stamped today, the pair is suppressed.
	dedup.Set(DedupKey{SubscriptionID: 1, Threshold: 3}, "2026-03-07")
	assert.Empty(t, ev.Evaluate("2026-03-07", "09:04", subs))

	// A stale stamp from a previous day does not suppress.
	dedup.Set(DedupKey{SubscriptionID: 1, Threshold: 3}, "2026-03-06")
	assert.Len(t, ev.Evaluate("2026-03-07", "09:04", subs), 1)
}

func TestEvaluate_IndependentThresholds(t *testing.T) {
	dedup := NewMemoryDedupStore()
	ev := newTestEvaluator(dedup)

	// Two subscriptions, one due at 7 days and one due today.
	subs := []*models.Subscription{
		sub(1, "2026-03-14", "7,3,1,0", "09:00"),
		sub(2, "2026-03-07", "7,3,1,0", "09:00"),
	}
	due := ev.Evaluate("2026-03-07", "09:00", subs)
	assert.ElementsMatch(t, []DuePair{{1, 7}, {2, 0}}, due)

	// Suppressing one pair leaves the other live.
	dedup.Set(DedupKey{SubscriptionID: 1, Threshold: 7}, "2026-03-07")
	due = ev.Evaluate("2026-03-07", "09:02", subs)
	assert.Equal(t, []DuePair{{SubscriptionID: 2, Threshold: 0}}, due)
}

func TestEvaluate_WeekOutScenario(t *testing.T) {
	dedup := NewMemoryDedupStore()
	ev := newTestEvaluator(dedup)
	subs := []*models.Subscription{sub(1, "2026-03-14", "7,3,1,0", "09:00")}

	// 09:02, seven days before the due date: the threshold-7 pair fires.
	due := ev.Evaluate("2026-03-07", "09:02", subs)
	require.Equal(t, []DuePair{{SubscriptionID: 1, Threshold: 7}}, due)
	dedup.Set(DedupKey{SubscriptionID: 1, Threshold: 7}, "2026-03-07")

	// Second tick of the same day inside the window: nothing.
	assert.Empty(t, ev.Evaluate("2026-03-07", "09:04", subs))

	// Next day days-left is 6, which is not a configured threshold.
	assert.Empty(t, ev.Evaluate("2026-03-08", "09:02", subs))
}

func TestParseNotifyDays(t *testing.T) {
	assert.Equal(t, []int{7, 3, 1, 0}, ParseNotifyDays("7,3,1,0"))
	assert.Equal(t, []int{7, 3}, ParseNotifyDays(" 7 , 3 "))
	assert.Equal(t, []int{3}, ParseNotifyDays("3,x,3"))
	assert.Empty(t, ParseNotifyDays(""))
	assert.Empty(t, ParseNotifyDays("a,b"))
}

func TestMemoryDedupStore(t *testing.T) {
	s := NewMemoryDedupStore()
	key := DedupKey{SubscriptionID: 9, Threshold: 1}

	_, ok := s.Get(key)
	require.False(t, ok)

	s.Set(key, "2026-03-07")
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "2026-03-07", got)

	s.Set(key, "2026-03-08")
	got, _ = s.Get(key)
	assert.Equal(t, "2026-03-08", got)

	// Thresholds key independently.
	_, ok = s.Get(DedupKey{SubscriptionID: 9, Threshold: 0})
	assert.False(t, ok)
}
