package core

import (
	"time"

	"metrocore/pkg/domain"
)

// UrgencyClass buckets a sample's deadline posture relative to a reference day.
type UrgencyClass string

// Urgency classifications. DueToday and DueTomorrow are mutually exclusive at
// their boundary; exactly one day ahead is never folded into OnTrack.
const (
	UrgencyOverdue       UrgencyClass = "overdue"
	UrgencyDueToday      UrgencyClass = "due_today"
	UrgencyDueTomorrow   UrgencyClass = "due_tomorrow"
	UrgencyOnTrack       UrgencyClass = "on_track"
	UrgencyComplete      UrgencyClass = "complete"
	UrgencyNotApplicable UrgencyClass = "not_applicable"
)

// Urgency is the classification of a due date against a reference day. Days
// carries the overdue count for Overdue and the days left for OnTrack; it is
// zero otherwise.
type Urgency struct {
	Class UrgencyClass `json:"class"`
	Days  int          `json:"days,omitempty"`
}

// SLACalculator computes phase due dates from per-stage day budgets and
// classifies deadline urgency. Budgets are injected configuration; the
// calculator itself is stateless and safe for concurrent use.
type SLACalculator struct {
	budgets  domain.StageBudgets
	holidays map[time.Time]struct{}
}

// SLAOption customises calculator construction.
type SLAOption func(*SLACalculator)

// WithHolidays enables holiday exclusion: configured days do not consume SLA
// budget. The option only affects due dates computed after it is set; stored
// due dates are never recomputed.
func WithHolidays(days []time.Time) SLAOption {
	return func(c *SLACalculator) {
		if len(days) == 0 {
			return
		}
		c.holidays = make(map[time.Time]struct{}, len(days))
		for _, d := range days {
			c.holidays[dateOf(d)] = struct{}{}
		}
	}
}

// NewSLACalculator builds a calculator over the supplied budgets. Nil budgets
// fall back to the stock deployment pattern.
func NewSLACalculator(budgets domain.StageBudgets, opts ...SLAOption) *SLACalculator {
	if budgets == nil {
		budgets = domain.DefaultStageBudgets()
	}
	c := &SLACalculator{budgets: budgets}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Budget returns the day budget for a stage and whether one is configured.
func (c *SLACalculator) Budget(stage domain.Stage) (int, bool) {
	b, ok := c.budgets[stage]
	if !ok || b <= 0 {
		return 0, false
	}
	return b, true
}

// DueDate computes the date by which the phase after enteredStage is expected
// to begin: enteredDate plus the stage's budget in calendar days. When holiday
// exclusion is configured, holidays do not consume budget days. The boolean is
// false when the stage has no budget (terminal stage, unconfigured stage).
func (c *SLACalculator) DueDate(enteredStage domain.Stage, enteredDate time.Time) (time.Time, bool) {
	budget, ok := c.Budget(enteredStage)
	if !ok {
		return time.Time{}, false
	}
	due := dateOf(enteredDate)
	for remaining := budget; remaining > 0; {
		due = due.AddDate(0, 0, 1)
		if _, holiday := c.holidays[due]; holiday {
			continue
		}
		remaining--
	}
	return due, true
}

// Urgency classifies a sample's due date relative to today. Terminal-stage
// samples are always Complete regardless of date math; a missing due date is
// NotApplicable.
func (c *SLACalculator) Urgency(stage domain.Stage, due *time.Time, today time.Time) Urgency {
	if stage == domain.TerminalStage {
		return Urgency{Class: UrgencyComplete}
	}
	if due == nil {
		return Urgency{Class: UrgencyNotApplicable}
	}
	days := daysBetween(today, *due)
	switch {
	case days < 0:
		return Urgency{Class: UrgencyOverdue, Days: -days}
	case days == 0:
		return Urgency{Class: UrgencyDueToday}
	case days == 1:
		return Urgency{Class: UrgencyDueTomorrow}
	default:
		return Urgency{Class: UrgencyOnTrack, Days: days}
	}
}

// dateOf truncates a timestamp to its calendar day in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole calendar days from a to b (negative when b is
// in the past).
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)) / (24 * time.Hour))
}
