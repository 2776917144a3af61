package models

import (
	"encoding/json"
	"errors"
	"testing"

	"adherence-tracker/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMedication() *Medication {
	return &Medication{
		PatientID: "patient-1",
		Name:      "Metformin",
		Dosage:    500,
		Unit:      "mg",
		Form:      "tablet",
		Schedule:  "daily",
		Times:     TimeSlots{"08:00", "20:00"},
		StartDate: schedule.MustParseDate("2024-01-01"),
	}
}

func TestMedication_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(m *Medication)
		wantField string
	}{
		{name: "valid", mutate: func(m *Medication) {}},
		{name: "missing name", mutate: func(m *Medication) { m.Name = "  " }, wantField: "name"},
		{name: "missing patient", mutate: func(m *Medication) { m.PatientID = "" }, wantField: "patientId"},
		{name: "zero dosage", mutate: func(m *Medication) { m.Dosage = 0 }, wantField: "dosage"},
		{name: "bad unit", mutate: func(m *Medication) { m.Unit = "grams" }, wantField: "unit"},
		{name: "bad form", mutate: func(m *Medication) { m.Form = "patch" }, wantField: "form"},
		{name: "bad schedule", mutate: func(m *Medication) { m.Schedule = "hourly" }, wantField: "schedule"},
		{name: "bad time", mutate: func(m *Medication) { m.Times = TimeSlots{"8am"} }, wantField: "times"},
		{name: "missing start", mutate: func(m *Medication) { m.StartDate = schedule.Date{} }, wantField: "startDate"},
		{
			name:      "end before start",
			mutate:    func(m *Medication) { m.EndDate = schedule.MustParseDate("2023-12-31") },
			wantField: "endDate",
		},
		{
			name:   "end equal to start",
			mutate: func(m *Medication) { m.EndDate = m.StartDate },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMedication()
			tt.mutate(m)

			err := m.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestMedication_ValidateCanonicalizes(t *testing.T) {
	m := validMedication()
	m.Schedule = " Weekly "
	m.CustomInterval = schedule.Interval{Number: 2, Unit: "day"}
	m.Times = TimeSlots{"08:00", "08:00", "12:00"}

	require.NoError(t, m.Validate())
	assert.Equal(t, "weekly", m.Schedule)
	assert.True(t, m.CustomInterval.IsZero())
	assert.Equal(t, TimeSlots{"08:00", "12:00"}, m.Times)
}

func TestMedication_ValidateWrapsScheduleErrors(t *testing.T) {
	m := validMedication()
	m.Times = TimeSlots{"25:00"}
	assert.True(t, errors.Is(m.Validate(), schedule.ErrInvalidTimeFormat))

	m = validMedication()
	m.Schedule = "sometimes"
	assert.True(t, errors.Is(m.Validate(), schedule.ErrInvalidScheduleKind))
}

func TestMedication_JSON(t *testing.T) {
	body := `{
		"patientId": "p1",
		"name": "Vitamin D",
		"dosage": 2,
		"unit": "drops",
		"form": "syrup",
		"schedule": "custom",
		"customInterval": "every 2 weeks",
		"times": ["09:00"],
		"startDate": "2024-01-01",
		"endDate": null
	}`

	var m Medication
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	assert.Equal(t, "every 2 weeks", m.CustomInterval.Text)
	assert.True(t, m.EndDate.IsZero())

	plan, err := m.Plan()
	require.NoError(t, err)
	assert.Equal(t, schedule.UnitWeek, plan.Rule.Unit)
	assert.Equal(t, 2, plan.Rule.Number)
}

func TestTimeSlots_Storage(t *testing.T) {
	v, err := TimeSlots{"08:00", "20:00"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["08:00","20:00"]`, v)

	var back TimeSlots
	require.NoError(t, back.Scan(v))
	assert.Equal(t, TimeSlots{"08:00", "20:00"}, back)

	v, err = TimeSlots(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}

func TestDoseRecord_Dose(t *testing.T) {
	rec := &DoseRecord{ID: "abc", Date: schedule.MustParseDate("2024-01-05"), Time: "08:00"}

	dose := rec.Dose()
	assert.Nil(t, dose.Taken)
	assert.Equal(t, schedule.Persisted, dose.Origin)

	rec.SetTaken(schedule.Bool(false))
	dose = rec.Dose()
	require.NotNil(t, dose.Taken)
	assert.False(t, *dose.Taken)

	rec.SetTaken(nil)
	assert.False(t, rec.Taken.Valid)
}

func TestMedicationPatch(t *testing.T) {
	m := validMedication()
	m.EndDate = schedule.MustParseDate("2024-06-30")
	m.Notes = "with food"

	var patch MedicationPatch
	require.NoError(t, json.Unmarshal([]byte(`{"dosage": 750, "times": ["07:30"], "endDate": null}`), &patch))
	assert.False(t, patch.Empty())

	patch.Apply(m)
	require.NoError(t, m.Validate())
	assert.Equal(t, 750.0, m.Dosage)
	assert.Equal(t, TimeSlots{"07:30"}, m.Times)
	assert.True(t, m.EndDate.IsZero(), "explicit null clears the end date")
	assert.Equal(t, "with food", m.Notes, "absent fields are untouched")
	assert.Equal(t, "Metformin", m.Name)

	var keep MedicationPatch
	require.NoError(t, json.Unmarshal([]byte(`{"reminders": true}`), &keep))
	m.EndDate = schedule.MustParseDate("2024-06-30")
	keep.Apply(m)
	assert.True(t, m.Reminders)
	assert.Equal(t, "2024-06-30", m.EndDate.String())

	assert.True(t, (&MedicationPatch{}).Empty())
}
