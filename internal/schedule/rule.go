package schedule

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the repeat pattern of a medication.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
	KindCustom  Kind = "custom"
)

// ParseKind validates a schedule string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDaily, KindWeekly, KindMonthly, KindCustom:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScheduleKind, s)
}

// Unit is the step of a custom interval.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

func parseUnit(s string) (Unit, bool) {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	switch Unit(u) {
	case UnitDay, UnitWeek, UnitMonth:
		return Unit(u), true
	}
	return UnitDay, false
}

// Interval is the customInterval field as clients send it: either an object
// {"number": 3, "unit": "day"} or a legacy string such as "every 3 days".
// Number holds whatever numeric value was sent; Normalize does the coercion.
type Interval struct {
	Number float64 `json:"number"`
	Unit   string  `json:"unit"`
	Text   string  `json:"-"`
}

// IsZero reports whether no interval was given at all.
func (iv Interval) IsZero() bool {
	return iv.Number == 0 && iv.Unit == "" && iv.Text == ""
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	if iv.IsZero() {
		return []byte("null"), nil
	}
	if iv.Text != "" {
		return json.Marshal(iv.Text)
	}
	return json.Marshal(struct {
		Number float64 `json:"number"`
		Unit   string  `json:"unit"`
	}{iv.Number, iv.Unit})
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*iv = Interval{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &iv.Text)
	case data[0] == '{':
		var raw struct {
			Number interface{} `json:"number"`
			Unit   interface{} `json:"unit"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		switch n := raw.Number.(type) {
		case float64:
			iv.Number = n
		case string:
			iv.Number, _ = strconv.ParseFloat(strings.TrimSpace(n), 64)
		}
		if u, ok := raw.Unit.(string); ok {
			iv.Unit = u
		}
		return nil
	default:
		return fmt.Errorf("customInterval must be an object or a string")
	}
}

// Value stores the interval as its JSON form.
func (iv Interval) Value() (driver.Value, error) {
	if iv.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(iv)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (iv *Interval) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*iv = Interval{}
		return nil
	case string:
		return iv.UnmarshalJSON([]byte(v))
	case []byte:
		return iv.UnmarshalJSON(v)
	default:
		return fmt.Errorf("cannot scan %T into Interval", src)
	}
}

// Rule is the canonical repeat rule. Number and Unit are only meaningful for
// KindCustom.
type Rule struct {
	Kind   Kind
	Number int
	Unit   Unit

	// Fallback is set when a lenient default replaced missing or unreadable
	// custom interval data. FallbackReason says which default applied.
	Fallback       bool
	FallbackReason string
}

const (
	FallbackMissingInterval = "missing_interval"
	FallbackBadNumber       = "bad_number"
	FallbackBadUnit         = "bad_unit"
	FallbackUnparsedText    = "unparsed_text"
)

var legacyInterval = regexp.MustCompile(`(?i)every (\d+) (day|week|month)s?`)

// Normalize turns a schedule string and custom interval into a Rule. Only the
// schedule kind is strict; unreadable custom intervals fall back to every 1 day.
func Normalize(schedule string, iv Interval) (Rule, error) {
	kind, err := ParseKind(schedule)
	if err != nil {
		return Rule{}, err
	}
	if kind != KindCustom {
		return Rule{Kind: kind}, nil
	}

	rule := Rule{Kind: KindCustom, Number: 1, Unit: UnitDay}

	if iv.Number != 0 || iv.Unit != "" {
		n := int(math.Floor(iv.Number))
		if n >= 1 {
			rule.Number = n
		} else {
			rule.fallback(FallbackBadNumber)
		}
		unit, ok := parseUnit(iv.Unit)
		rule.Unit = unit
		if !ok {
			rule.fallback(FallbackBadUnit)
		}
		return rule, nil
	}

	if iv.Text != "" {
		m := legacyInterval.FindStringSubmatch(iv.Text)
		if m == nil {
			rule.fallback(FallbackUnparsedText)
			return rule, nil
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			rule.Number = n
		} else {
			rule.fallback(FallbackBadNumber)
		}
		rule.Unit, _ = parseUnit(m[2])
		return rule, nil
	}

	rule.fallback(FallbackMissingInterval)
	return rule, nil
}

func (r *Rule) fallback(reason string) {
	if r.Fallback {
		return
	}
	r.Fallback = true
	r.FallbackReason = reason
}

func (r Rule) String() string {
	if r.Kind != KindCustom {
		return string(r.Kind)
	}
	if r.Number == 1 {
		return fmt.Sprintf("every %s", r.Unit)
	}
	return fmt.Sprintf("every %d %ss", r.Number, r.Unit)
}
