package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"adherence-tracker/internal/schedule"
)

// Roles carried in access tokens
const (
	RolePatient = "patient"
	RoleFamily  = "family"
	RoleDoctor  = "doctor"
)

// Allowed dosage units and forms
var (
	Units = []string{"mg", "ml", "pills", "capsules", "drops"}
	Forms = []string{"tablet", "capsule", "syrup", "injection"}
)

// Medication is a prescribed regimen for one patient
type Medication struct {
	ID             string            `json:"id"`
	PatientID      string            `json:"patientId"`
	Name           string            `json:"name"`
	Dosage         float64           `json:"dosage"`
	Unit           string            `json:"unit"`
	Form           string            `json:"form"`
	Schedule       string            `json:"schedule"`
	CustomInterval schedule.Interval `json:"customInterval"`
	Times          TimeSlots         `json:"times"`
	StartDate      schedule.Date     `json:"startDate"`
	EndDate        schedule.Date     `json:"endDate"`
	Reminders      bool              `json:"reminders"`
	Notes          string            `json:"notes,omitempty"`
	CreatedBy      string            `json:"createdBy,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Plan builds the scheduling view of the medication
func (m *Medication) Plan() (schedule.Plan, error) {
	return schedule.NewPlan(m.ID, m.Schedule, m.CustomInterval, m.Times, m.StartDate, m.EndDate)
}

// Validate checks the medication before it is written. It also canonicalizes the
// schedule kind and collapses duplicate time slots.
func (m *Medication) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if m.PatientID == "" {
		return &ValidationError{Field: "patientId", Message: "is required"}
	}
	if m.Dosage <= 0 {
		return &ValidationError{Field: "dosage", Message: "must be greater than 0"}
	}
	if !oneOf(m.Unit, Units) {
		return &ValidationError{Field: "unit", Message: "must be one of " + strings.Join(Units, ", ")}
	}
	if !oneOf(m.Form, Forms) {
		return &ValidationError{Field: "form", Message: "must be one of " + strings.Join(Forms, ", ")}
	}

	kind, err := schedule.ParseKind(m.Schedule)
	if err != nil {
		return &ValidationError{Field: "schedule", Message: "must be daily, weekly, monthly or custom", Err: err}
	}
	m.Schedule = string(kind)
	if kind != schedule.KindCustom {
		m.CustomInterval = schedule.Interval{}
	}

	times, err := schedule.NormalizeTimes(m.Times)
	if err != nil {
		return &ValidationError{Field: "times", Message: "each time must be HH:MM (24-hour)", Err: err}
	}
	m.Times = times

	if m.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Message: "is required"}
	}
	if !m.EndDate.IsZero() && m.EndDate.Before(m.StartDate) {
		return &ValidationError{Field: "endDate", Message: "must not be before startDate"}
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ValidationError reports a field that failed write-time validation
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TimeSlots is the ordered list of HH:MM slots, stored as a JSON array
type TimeSlots []string

func (t TimeSlots) Value() (driver.Value, error) {
	if t == nil {
		t = TimeSlots{}
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TimeSlots) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = TimeSlots{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into TimeSlots", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode times: %w", err)
	}
	*t = out
	return nil
}

// DoseRecord is a stored dose row
type DoseRecord struct {
	ID           string        `json:"doseId"`
	MedicationID string        `json:"medicationId"`
	Date         schedule.Date `json:"date"`
	Time         string        `json:"time"`
	Taken        sql.NullBool  `json:"-"`
	UpdatedBy    string        `json:"updatedBy,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Dose converts the row into the scheduling view
func (d *DoseRecord) Dose() schedule.Dose {
	dose := schedule.Dose{
		ID:     d.ID,
		Date:   d.Date,
		Time:   d.Time,
		Origin: schedule.Persisted,
	}
	if d.Taken.Valid {
		dose.Taken = schedule.Bool(d.Taken.Bool)
	}
	return dose
}

// SetTaken stores a tri-state status; nil resets the dose to unresolved
func (d *DoseRecord) SetTaken(taken *bool) {
	if taken == nil {
		d.Taken = sql.NullBool{}
		return
	}
	d.Taken = sql.NullBool{Bool: *taken, Valid: true}
}

// Doses converts stored rows for one medication
func Doses(records []*DoseRecord) []schedule.Dose {
	out := make([]schedule.Dose, 0, len(records))
	for _, r := range records {
		out = append(out, r.Dose())
	}
	return out
}

// ScheduledDose is a reconciled dose as returned to clients
type ScheduledDose struct {
	schedule.Dose
	MedicationID   string          `json:"medicationId"`
	MedicationName string          `json:"medicationName,omitempty"`
	Dosage         float64         `json:"dosage,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Status         schedule.Status `json:"status"`
	Persisted      bool            `json:"persisted"`
}

// MedicationCompliance is one medication's share of a compliance summary
type MedicationCompliance struct {
	MedicationID   string `json:"medicationId"`
	MedicationName string `json:"medicationName"`
	schedule.Summary
}

// ComplianceReport is the patient-level compliance response
type ComplianceReport struct {
	PatientID string `json:"patientId"`
	schedule.Summary
	Reconciled   bool                   `json:"reconciled"`
	ByMedication []MedicationCompliance `json:"byMedication"`
}

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID         int64
	UserID     sql.NullString
	Action     string
	EntityType string
	EntityID   sql.NullString
	Details    sql.NullString
	IPAddress  sql.NullString
	UserAgent  sql.NullString
	Timestamp  time.Time
}
