package models

import "adherence-tracker/internal/schedule"

// MedicationPatch is a partial medication update. Absent fields are left alone.
// The owning patient cannot be changed.
type MedicationPatch struct {
	Name           *string            `json:"name"`
	Dosage         *float64           `json:"dosage"`
	Unit           *string            `json:"unit"`
	Form           *string            `json:"form"`
	Schedule       *string            `json:"schedule"`
	CustomInterval *schedule.Interval `json:"customInterval"`
	Times          *TimeSlots         `json:"times"`
	StartDate      *schedule.Date     `json:"startDate"`
	EndDate        OptionalDate       `json:"endDate"`
	Reminders      *bool              `json:"reminders"`
	Notes          *string            `json:"notes"`
}

// OptionalDate tells an absent date apart from an explicit null, which clears it
type OptionalDate struct {
	Set   bool
	Value schedule.Date
}

func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

// Apply copies the present fields onto m. Validate must run afterwards.
func (p *MedicationPatch) Apply(m *Medication) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = *p.Dosage
	}
	if p.Unit != nil {
		m.Unit = *p.Unit
	}
	if p.Form != nil {
		m.Form = *p.Form
	}
	if p.Schedule != nil {
		m.Schedule = *p.Schedule
	}
	if p.CustomInterval != nil {
		m.CustomInterval = *p.CustomInterval
	}
	if p.Times != nil {
		m.Times = *p.Times
	}
	if p.StartDate != nil {
		m.StartDate = *p.StartDate
	}
	if p.EndDate.Set {
		m.EndDate = p.EndDate.Value
	}
	if p.Reminders != nil {
		m.Reminders = *p.Reminders
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
}

// Empty reports whether the patch changes nothing
func (p *MedicationPatch) Empty() bool {
	return p.Name == nil && p.Dosage == nil && p.Unit == nil && p.Form == nil &&
		p.Schedule == nil && p.CustomInterval == nil && p.Times == nil &&
		p.StartDate == nil && !p.EndDate.Set && p.Reminders == nil && p.Notes == nil
}
