package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"
	"adherence-tracker/internal/schedule"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set ADHERENCE_TEST_DATABASE_URL to run these against a real server.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("ADHERENCE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ADHERENCE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, Config{URL: url, MaxConns: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestStore_MedicationAndDoses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	patientID := "patient-" + uuid.NewString()

	med := &models.Medication{
		PatientID:      patientID,
		Name:           "Methotrexate",
		Dosage:         2.5,
		Unit:           "mg",
		Form:           "tablet",
		Schedule:       "custom",
		CustomInterval: schedule.Interval{Number: 1, Unit: "week"},
		Times:          models.TimeSlots{"09:00"},
		StartDate:      schedule.MustParseDate("2024-01-01"),
	}
	require.NoError(t, store.Medications().Create(ctx, med))
	t.Cleanup(func() { _ = store.Medications().Delete(context.Background(), med.ID) })

	got, err := store.Medications().GetByID(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, med.CustomInterval, got.CustomInterval)
	assert.Equal(t, models.TimeSlots{"09:00"}, got.Times)
	assert.True(t, got.EndDate.IsZero())

	list, err := store.Medications().ListByPatient(ctx, patientID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	day := schedule.MustParseDate("2024-01-08")
	first := &models.DoseRecord{MedicationID: med.ID, Date: day, Time: "09:00"}
	first.SetTaken(schedule.Bool(false))
	require.NoError(t, store.Doses().Upsert(ctx, first))

	second := &models.DoseRecord{MedicationID: med.ID, Date: day, Time: "09:00"}
	second.SetTaken(schedule.Bool(true))
	require.NoError(t, store.Doses().Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Taken.Bool)

	n, err := store.Doses().InsertMissing(ctx, []*models.DoseRecord{
		{MedicationID: med.ID, Date: day, Time: "09:00"},
		{MedicationID: med.ID, Date: day.AddDays(7), Time: "09:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doses, err := store.Doses().ListByMedication(ctx, med.ID, day, schedule.Date{})
	require.NoError(t, err)
	assert.Len(t, doses, 2)

	_, err = store.Doses().GetBySlot(ctx, med.ID, day, "21:00")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	require.NoError(t, store.Audit().LogWithDetails(ctx, "u1", "create", "medication", med.ID, map[string]interface{}{"n": 1}, "", ""))
	logs, err := store.Audit().GetByEntity(ctx, "medication", med.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"n":1}`, logs[0].Details.String)
}
