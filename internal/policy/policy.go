// Package policy implements the warn/terminate decision engine.
// Decisions are pure values; side effects belong to the executor.
package policy

import (
	"time"

	"playtimed/internal/domain"
)

// Engine evaluates the daily budget and the allowed time-of-day window.
type Engine struct {
	LimitSeconds      int64
	WarnBeforeSeconds int64
	WindowStart       domain.MinuteOfDay
	WindowEnd         domain.MinuteOfDay // exclusive
}

// Decide returns the action for the current tick, in precedence order:
//
//  1. Outside the allowed window [start, end): Terminate, regardless of
//     accumulated time.
//  2. Total at or past the limit: Terminate.
//  3. Total at or past limit-warnBefore and not yet warned: Warn.
//  4. Otherwise: NoAction.
//
// Boundary values count toward the stricter action.
func (e Engine) Decide(totalSeconds int64, now time.Time, alreadyWarned bool) domain.Decision {
	if !e.WithinAllowedWindow(now) {
		return domain.Terminate
	}
	if totalSeconds >= e.LimitSeconds {
		return domain.Terminate
	}
	if totalSeconds >= e.LimitSeconds-e.WarnBeforeSeconds && !alreadyWarned {
		return domain.Warn
	}
	return domain.NoAction
}

// WithinAllowedWindow reports whether now falls in [start, end).
func (e Engine) WithinAllowedWindow(now time.Time) bool {
	m := domain.MinuteOf(now)
	return m >= e.WindowStart && m < e.WindowEnd
}

// Remaining returns the seconds left before the hard limit, floored at
// zero. Used for the warning message.
func (e Engine) Remaining(totalSeconds int64) int64 {
	if totalSeconds >= e.LimitSeconds {
		return 0
	}
	return e.LimitSeconds - totalSeconds
}
