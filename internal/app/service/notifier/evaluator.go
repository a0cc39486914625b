package notifier

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/nebulahq/nebula/internal/app/service/recurrence"
	"github.com/nebulahq/nebula/internal/models"
)

const defaultNotifyTime = "09:00"

// DuePair is a (subscription, threshold) combination whose firing
// condition is satisfied for the current tick.
type DuePair struct {
	SubscriptionID uint
	Threshold      int
}

// Evaluator decides which notification pairs are due. It only reads the
// dedup store; entries are written by the dispatcher after an attempt.
type Evaluator struct {
	log   *zap.SugaredLogger
	dedup DedupStore
}

func NewEvaluator(log *zap.SugaredLogger, dedup DedupStore) *Evaluator {
	return &Evaluator{log: log, dedup: dedup}
}

// Evaluate returns the due pairs for this tick. today is the calendar
// date and now the HH:MM wall time, both in the configured timezone.
//
// The time gate is hour-exact with a ±5-minute window inside that hour:
// a target of 00:58 does not fire at 01:02. This mirrors the stored
// notify_time contract and is intentionally not a sliding window.
func (e *Evaluator) Evaluate(today, now string, subs []*models.Subscription) []DuePair {
	curHour, curMin, ok := parseHHMM(now)
	if !ok {
		e.log.Errorw("evaluator: malformed current time", "now", now)
		return nil
	}

	var due []DuePair
	for _, sub := range subs {
		if !sub.NotifyEnabled {
			continue
		}

		notifyTime := sub.NotifyTime
		if notifyTime == "" {
			notifyTime = defaultNotifyTime
		}
		tgtHour, tgtMin, ok := parseHHMM(notifyTime)
		if !ok {
			e.log.Warnw("evaluator: malformed notify_time", "sub_id", sub.ID, "notify_time", sub.NotifyTime)
			continue
		}
		if curHour != tgtHour || abs(curMin-tgtMin) > 5 {
			continue
		}

		thresholds := ParseNotifyDays(sub.NotifyDays)
		if len(thresholds) == 0 {
			continue
		}

		daysLeft, err := recurrence.DiffDays(today, sub.NextDueDate)
		if err != nil {
			e.log.Warnw("evaluator: bad next_due_date", "sub_id", sub.ID, "next_due_date", sub.NextDueDate)
			continue
		}

		for _, threshold := range thresholds {
			if threshold != daysLeft {
				continue
			}
			key := DedupKey{SubscriptionID: sub.ID, Threshold: threshold}
			if last, ok := e.dedup.Get(key); ok && last == today {
				continue
			}
			due = append(due, DuePair{SubscriptionID: sub.ID, Threshold: threshold})
		}
	}
	return due
}

// ParseNotifyDays parses the stored comma-separated threshold list.
// Entries that do not parse as integers are discarded; duplicates are
// collapsed so one tick can never produce the same pair twice.
func ParseNotifyDays(csv string) []int {
	parsed := lo.FilterMap(strings.Split(csv, ","), func(s string, _ int) (int, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	})
	return lo.Uniq(parsed)
}

func parseHHMM(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
