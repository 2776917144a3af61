package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day. It is held as UTC midnight so that
// comparisons never depend on the server's local zone.
type Date struct {
	t time.Time
}

// NewDate returns the calendar date y-m-d. Out-of-range values are normalized the
// same way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns UTC midnight of d.
func (d Date) Time() time.Time { return d.t }

func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

const secondsPerDay = 24 * 60 * 60

// DaysSince returns the whole days from o to d. Negative when d is before o.
func (d Date) DaysSince(o Date) int {
	return int(d.t.Unix()/secondsPerDay - o.t.Unix()/secondsPerDay)
}

// MonthsSince returns the calendar-month difference from o to d, ignoring days.
func (d Date) MonthsSince(o Date) int {
	return (d.Year()-o.Year())*12 + int(d.Month()) - int(o.Month())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD text; the zero date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan reads DATE columns. The sqlite driver hands back time.Time for DATE
// declared columns; other drivers may hand back text.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// DefaultWindowDays is the look-back used when a caller gives no window.
const DefaultWindowDays = 30

// Resolve fills a missing start or end: the end defaults to today, the start to
// DefaultWindowDays before the end.
func (w Window) Resolve(today Date) Window {
	if w.End.IsZero() {
		w.End = today
	}
	if w.Start.IsZero() {
		w.Start = w.End.AddDays(-DefaultWindowDays)
	}
	return w
}

// Contains reports whether d falls inside the window, both ends inclusive.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}
