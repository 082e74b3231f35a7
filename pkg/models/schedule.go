package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrScheduleInPast is returned when an at_time automation resolves to a
// delay that already elapsed. Registration is skipped for it.
var ErrScheduleInPast = errors.New("scheduled time is in the past")

// ErrNotScheduled is returned when schedule resolution is asked of an
// automation whose trigger type is not the scheduled sentinel.
var ErrNotScheduled = errors.New("automation is not schedule-driven")

// intervalCron maps the common periodic intervals (in minutes) to canonical
// cron patterns. Anything else falls back to a generic */N spec.
var intervalCron = map[int]string{
	1:    "* * * * *",
	5:    "*/5 * * * *",
	10:   "*/10 * * * *",
	15:   "*/15 * * * *",
	30:   "*/30 * * * *",
	60:   "0 * * * *",
	120:  "0 */2 * * *",
	360:  "0 */6 * * *",
	720:  "0 */12 * * *",
	1440: "0 0 * * *",
}

// ResolveCron resolves the cron expression of a periodic automation. An
// explicit expression wins over the interval lookup.
func (a *Automation) ResolveCron() (string, error) {
	if !a.IsScheduled() || a.ScheduleType != SchedulePeriodic {
		return "", ErrNotScheduled
	}

	expr := a.CronExpression
	if expr == "" {
		if a.IntervalMinutes <= 0 {
			return "", fmt.Errorf("periodic automation %s has neither cron expression nor interval", a.ID)
		}

		canonical, ok := intervalCron[a.IntervalMinutes]
		if ok {
			expr = canonical
		} else {
			expr = fmt.Sprintf("*/%d * * * *", a.IntervalMinutes)
		}
	}

	_, err := cron.ParseStandard(expr)
	if err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return expr, nil
}

// ResolveDelay resolves the one-shot delay of an at_time automation relative
// to now. A delay that already elapsed is rejected.
func (a *Automation) ResolveDelay(now time.Time) (time.Duration, error) {
	if !a.IsScheduled() || a.ScheduleType != ScheduleAtTime {
		return 0, ErrNotScheduled
	}

	if a.ScheduledTime == nil {
		return 0, fmt.Errorf("at_time automation %s has no scheduled time", a.ID)
	}

	delay := a.ScheduledTime.Sub(now)
	if delay <= 0 {
		return 0, ErrScheduleInPast
	}

	return delay, nil
}
