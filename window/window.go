// Package window evaluates whether a customization may still be requested
// for a delivery slot. Evaluation is a total, pure function of the shift,
// the target date, and an injected current time — it never reads the system
// clock, so every cutoff branch is testable.
package window

import (
	"time"

	"github.com/xraph/thali/subscription"
)

// Same-day cutoffs in minutes since midnight. Morning orders close at 11:59,
// evening orders at 19:00.
const (
	MorningCutoffMinutes = 719
	EveningCutoffMinutes = 1140
)

// DefaultMaxAdvanceDays is how far ahead a slot may be customized.
const DefaultMaxAdvanceDays = 7

// Reason is a machine-readable denial cause.
type Reason string

const (
	ReasonPastDate    Reason = "PAST_DATE_NOT_ALLOWED"
	ReasonTimeLimit   Reason = "TIME_LIMIT_EXCEEDED"
	ReasonTooFarAhead Reason = "TOO_FAR_IN_ADVANCE"
)

// Decision is the evaluator's typed result. A denied decision always carries
// a Reason; TIME_LIMIT_EXCEEDED additionally carries the human cutoff string.
type Decision struct {
	Allowed        bool
	Reason         Reason
	Cutoff         string // "11:59" or "19:00" for TIME_LIMIT_EXCEEDED
	MaxAdvanceDays int    // populated for TOO_FAR_IN_ADVANCE
}

func allow() Decision { return Decision{Allowed: true} }

// Evaluate applies the ordered cutoff rules; the first matching rule wins.
// maxAdvanceDays <= 0 selects DefaultMaxAdvanceDays. Dates compare by
// calendar day in now's location.
func Evaluate(shift subscription.Shift, targetDate, now time.Time, maxAdvanceDays int) Decision {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = DefaultMaxAdvanceDays
	}

	today := Midnight(now)
	target := Midnight(targetDate.In(now.Location()))

	if target.Before(today) {
		return Decision{Allowed: false, Reason: ReasonPastDate}
	}

	if target.Equal(today) {
		elapsed := now.Hour()*60 + now.Minute()
		if shift == subscription.ShiftMorning && elapsed >= MorningCutoffMinutes {
			return Decision{Allowed: false, Reason: ReasonTimeLimit, Cutoff: "11:59"}
		}
		if shift == subscription.ShiftEvening && elapsed >= EveningCutoffMinutes {
			return Decision{Allowed: false, Reason: ReasonTimeLimit, Cutoff: "19:00"}
		}
	}

	if target.After(today.AddDate(0, 0, maxAdvanceDays)) {
		return Decision{Allowed: false, Reason: ReasonTooFarAhead, MaxAdvanceDays: maxAdvanceDays}
	}

	return allow()
}

// Midnight normalizes t to 00:00 in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
