package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy selects between the two readings of custom weekly and monthly intervals.
// The zero value is the canonical behavior: custom weeks only count whole 7-day
// blocks since the start, and custom months only count calendar months.
type Policy struct {
	// CustomWeekRequiresWeekday additionally requires the start date's weekday.
	CustomWeekRequiresWeekday bool
	// CustomMonthRequiresDayOfMonth additionally requires the start date's day of month.
	CustomMonthRequiresDayOfMonth bool
}

// IsDue reports whether a rule starting on start has a dose on day. It knows
// nothing about end dates; see Plan.DueOn.
func (p Policy) IsDue(rule Rule, start, day Date) bool {
	if day.Before(start) {
		return false
	}

	switch rule.Kind {
	case KindDaily:
		return true
	case KindWeekly:
		return day.Weekday() == start.Weekday()
	case KindMonthly:
		// A start on the 29th-31st is simply not due in months without that day.
		return day.Day() == start.Day()
	case KindCustom:
		n := rule.Number
		if n < 1 {
			n = 1
		}
		switch rule.Unit {
		case UnitWeek:
			days := day.DaysSince(start)
			if p.CustomWeekRequiresWeekday && days%7 != 0 {
				return false
			}
			return (days/7)%n == 0
		case UnitMonth:
			months := day.MonthsSince(start)
			if months < 0 || months%n != 0 {
				return false
			}
			return !p.CustomMonthRequiresDayOfMonth || day.Day() == start.Day()
		default:
			return day.DaysSince(start)%n == 0
		}
	}
	return false
}

// IsDue evaluates the canonical policy.
func IsDue(rule Rule, start, day Date) bool {
	return Policy{}.IsDue(rule, start, day)
}

// Plan is the scheduling view of a medication: what the engine needs and nothing
// else.
type Plan struct {
	MedicationID string
	Rule         Rule
	Times        []string
	StartDate    Date
	// EndDate is the last day with doses; zero means open-ended.
	EndDate Date
}

// NewPlan normalizes the raw schedule fields of a medication.
func NewPlan(medicationID, schedule string, iv Interval, times []string, start, end Date) (Plan, error) {
	rule, err := Normalize(schedule, iv)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		MedicationID: medicationID,
		Rule:         rule,
		Times:        times,
		StartDate:    start,
		EndDate:      end,
	}, nil
}

// DueOn applies the rule and the end-date gate.
func (p Policy) DueOn(plan Plan, day Date) bool {
	if !plan.EndDate.IsZero() && day.After(plan.EndDate) {
		return false
	}
	return p.IsDue(plan.Rule, plan.StartDate, day)
}

// Ended reports whether the plan's last day is before today.
func (plan Plan) Ended(today Date) bool {
	return !plan.EndDate.IsZero() && plan.EndDate.Before(today)
}

// InRange reports whether day lies within [StartDate, EndDate]. An unset start date
// accepts any day.
func (plan Plan) InRange(day Date) bool {
	if plan.StartDate.IsZero() {
		return true
	}
	if day.Before(plan.StartDate) {
		return false
	}
	return plan.EndDate.IsZero() || !day.After(plan.EndDate)
}

var timeSlot = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// NormalizeTimes validates HH:MM slots and drops duplicates, keeping the first
// occurrence of each.
func NormalizeTimes(times []string) ([]string, error) {
	seen := make(map[string]bool, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if !timeSlot.MatchString(t) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}
