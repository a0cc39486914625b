// Package clock abstracts time so the scheduler and evaluator can be driven
// with a deterministic clock in tests.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is the injectable time source.
type Clock interface {
	Now() time.Time
}

// System reads the real system time.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (*System) Now() time.Time {
	return time.Now()
}

// TodayISO formats the clock's current date in the given location as YYYY-MM-DD.
func TodayISO(c Clock, loc *time.Location) string {
	return c.Now().In(loc).Format("2006-01-02")
}

// NowHHMM formats the clock's current wall time in the given location as HH:MM.
func NowHHMM(c Clock, loc *time.Location) string {
	return c.Now().In(loc).Format("15:04")
}

var Module = fx.Options(
	fx.Provide(func() Clock { return NewSystem() }),
)
