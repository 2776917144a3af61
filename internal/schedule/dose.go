package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Origin tells a stored dose apart from one computed from the schedule.
type Origin int

const (
	// Virtual doses exist only because the schedule says they are due.
	Virtual Origin = iota
	// Persisted doses have a stored record and a durable id.
	Persisted
)

func (o Origin) String() string {
	if o == Persisted {
		return "persisted"
	}
	return "virtual"
}

// Status is the resolved state of a dose.
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
)

// Dose is one expected or recorded administration. Taken is nil until someone
// marks the dose.
type Dose struct {
	ID     string `json:"doseId"`
	Date   Date   `json:"date"`
	Time   string `json:"time"`
	Taken  *bool  `json:"taken"`
	Origin Origin `json:"-"`
}

// Recorded returns the raw status without any time-based reinterpretation.
func (d Dose) Recorded() Status {
	switch {
	case d.Taken == nil:
		return StatusPending
	case *d.Taken:
		return StatusTaken
	default:
		return StatusMissed
	}
}

func (d Dose) key() string {
	return d.Date.String() + " " + d.Time
}

// Bool is a helper for building Taken values.
func Bool(v bool) *bool { return &v }

// DoseRef is a dose id broken back into its day and slot index.
type DoseRef struct {
	Day       Date
	SlotIndex int
}

// DeriveID builds the id a dose has before it is stored.
func DeriveID(day Date, slotIndex int) string {
	return day.String() + "-" + strconv.Itoa(slotIndex)
}

// ParseID splits at the last hyphen, since the date part has hyphens of its own.
func ParseID(id string) (DoseRef, error) {
	i := strings.LastIndex(id, "-")
	if i <= 0 || i == len(id)-1 {
		return DoseRef{}, fmt.Errorf("%w: %q", ErrMalformedDoseID, id)
	}
	idx, err := strconv.Atoi(id[i+1:])
	if err != nil || idx < 0 {
		return DoseRef{}, fmt.Errorf("%w: %q", ErrMalformedDoseID, id)
	}
	t, err := time.Parse(DateLayout, id[:i])
	if err != nil {
		return DoseRef{}, fmt.Errorf("%w: %q", ErrMalformedDoseID, id)
	}
	return DoseRef{Day: DateOf(t), SlotIndex: idx}, nil
}

// Materialize builds the unresolved dose a ref points at, ready to be stored. An
// index past the end of the slot list falls back to the first slot.
func Materialize(plan Plan, ref DoseRef) (Dose, error) {
	if len(plan.Times) == 0 {
		return Dose{}, ErrNoSlotsDefined
	}
	if err := CheckRange(plan, ref.Day); err != nil {
		return Dose{}, err
	}
	slot := ref.SlotIndex
	if slot < 0 || slot >= len(plan.Times) {
		slot = 0
	}
	return Dose{
		ID:     DeriveID(ref.Day, slot),
		Date:   ref.Day,
		Time:   plan.Times[slot],
		Origin: Virtual,
	}, nil
}

// CheckRange rejects days outside the plan's start/end window.
func CheckRange(plan Plan, day Date) error {
	if !plan.InRange(day) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrDoseOutOfRange, day, plan.StartDate, endLabel(plan.EndDate))
	}
	return nil
}

func endLabel(d Date) string {
	if d.IsZero() {
		return "open"
	}
	return d.String()
}
