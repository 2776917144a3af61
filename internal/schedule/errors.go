// Package schedule decides when medication doses are due, reconciles that virtual
// schedule with recorded doses, and summarizes adherence over a date window.
//
// Everything here is pure: no I/O, no clock reads. Callers pass "today" in.
package schedule

import "errors"

var (
	// ErrInvalidScheduleKind is returned for a schedule that is not daily, weekly,
	// monthly or custom.
	ErrInvalidScheduleKind = errors.New("invalid schedule kind")

	// ErrInvalidTimeFormat is returned for a time slot that is not 24-hour HH:MM.
	ErrInvalidTimeFormat = errors.New("invalid time format, use HH:MM")

	// ErrDoseOutOfRange is returned when a dose day falls outside the medication's
	// start/end window.
	ErrDoseOutOfRange = errors.New("dose is outside the medication date range")

	// ErrNoSlotsDefined is returned when a dose is materialized for a medication
	// with no time slots.
	ErrNoSlotsDefined = errors.New("medication has no time slots")

	// ErrMalformedDoseID is returned when a dose id is not <YYYY-MM-DD>-<index>.
	ErrMalformedDoseID = errors.New("malformed dose id")
)
