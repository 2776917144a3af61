package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"adherence-tracker/internal/database"
	"adherence-tracker/internal/models"
	"adherence-tracker/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func createTestMedication(t *testing.T, repo *MedicationRepository, patientID, name string) *models.Medication {
	t.Helper()

	m := &models.Medication{
		PatientID:      patientID,
		Name:           name,
		Dosage:         10,
		Unit:           "mg",
		Form:           "tablet",
		Schedule:       "custom",
		CustomInterval: schedule.Interval{Number: 3, Unit: "day"},
		Times:          models.TimeSlots{"08:00", "20:00"},
		StartDate:      schedule.MustParseDate("2024-01-01"),
		Notes:          "with food",
		CreatedBy:      "doctor-1",
	}
	require.NoError(t, repo.Create(context.Background(), m))
	return m
}

func TestMedicationRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepository(db)
	ctx := context.Background()

	created := createTestMedication(t, repo, "patient-1", "Lisinopril")
	require.NotEmpty(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisinopril", got.Name)
	assert.Equal(t, "patient-1", got.PatientID)
	assert.Equal(t, 10.0, got.Dosage)
	assert.Equal(t, schedule.Interval{Number: 3, Unit: "day"}, got.CustomInterval)
	assert.Equal(t, models.TimeSlots{"08:00", "20:00"}, got.Times)
	assert.Equal(t, "2024-01-01", got.StartDate.String())
	assert.True(t, got.EndDate.IsZero())
	assert.Equal(t, "with food", got.Notes)
	assert.Equal(t, "doctor-1", got.CreatedBy)

	got.Name = "Lisinopril XR"
	got.EndDate = schedule.MustParseDate("2024-06-30")
	got.CustomInterval = schedule.Interval{Text: "every 2 weeks"}
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisinopril XR", updated.Name)
	assert.Equal(t, "2024-06-30", updated.EndDate.String())
	assert.Equal(t, "every 2 weeks", updated.CustomInterval.Text)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMedicationRepository_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = repo.Update(ctx, &models.Medication{ID: "missing"})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = repo.Delete(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMedicationRepository_ListByPatient(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepository(db)

	createTestMedication(t, repo, "patient-1", "Zinc")
	createTestMedication(t, repo, "patient-1", "Aspirin")
	createTestMedication(t, repo, "patient-2", "Ibuprofen")

	meds, err := repo.ListByPatient(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, meds, 2)
	assert.Equal(t, "Aspirin", meds[0].Name)
	assert.Equal(t, "Zinc", meds[1].Name)
}

func TestDoseRepository_UpsertLastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	med := createTestMedication(t, NewMedicationRepository(db), "patient-1", "Aspirin")
	repo := NewDoseRepository(db)
	ctx := context.Background()
	day := schedule.MustParseDate("2024-01-04")

	first := &models.DoseRecord{MedicationID: med.ID, Date: day, Time: "08:00", UpdatedBy: "patient-1"}
	first.SetTaken(schedule.Bool(false))
	require.NoError(t, repo.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &models.DoseRecord{MedicationID: med.ID, Date: day, Time: "08:00", UpdatedBy: "family-1"}
	second.SetTaken(schedule.Bool(true))
	require.NoError(t, repo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID, "the slot keeps its original id")
	assert.True(t, second.Taken.Valid && second.Taken.Bool)
	assert.Equal(t, "family-1", second.UpdatedBy)

	doses, err := repo.ListByMedication(ctx, med.ID, schedule.Date{}, schedule.Date{})
	require.NoError(t, err)
	require.Len(t, doses, 1)

	reset := &models.DoseRecord{MedicationID: med.ID, Date: day, Time: "08:00"}
	reset.SetTaken(nil)
	require.NoError(t, repo.Upsert(ctx, reset))
	assert.False(t, reset.Taken.Valid)
}

func TestDoseRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	med := createTestMedication(t, NewMedicationRepository(db), "patient-1", "Aspirin")
	repo := NewDoseRepository(db)
	ctx := context.Background()

	dose := &models.DoseRecord{MedicationID: med.ID, Date: schedule.MustParseDate("2024-01-07"), Time: "20:00"}
	require.NoError(t, repo.Upsert(ctx, dose))

	byID, err := repo.GetByID(ctx, med.ID, dose.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-07", byID.Date.String())

	bySlot, err := repo.GetBySlot(ctx, med.ID, schedule.MustParseDate("2024-01-07"), "20:00")
	require.NoError(t, err)
	assert.Equal(t, dose.ID, bySlot.ID)

	_, err = repo.GetByID(ctx, "other-medication", dose.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.GetBySlot(ctx, med.ID, schedule.MustParseDate("2024-01-07"), "08:00")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDoseRepository_ListRange(t *testing.T) {
	db := setupTestDB(t)
	med := createTestMedication(t, NewMedicationRepository(db), "patient-1", "Aspirin")
	repo := NewDoseRepository(db)
	ctx := context.Background()

	for _, day := range []string{"2024-01-01", "2024-01-04", "2024-01-07", "2024-01-10"} {
		require.NoError(t, repo.Upsert(ctx, &models.DoseRecord{
			MedicationID: med.ID,
			Date:         schedule.MustParseDate(day),
			Time:         "08:00",
		}))
	}

	doses, err := repo.ListByMedication(ctx, med.ID, schedule.MustParseDate("2024-01-04"), schedule.MustParseDate("2024-01-07"))
	require.NoError(t, err)
	require.Len(t, doses, 2)
	assert.Equal(t, "2024-01-04", doses[0].Date.String())
	assert.Equal(t, "2024-01-07", doses[1].Date.String())
}

func TestDoseRepository_InsertMissing(t *testing.T) {
	db := setupTestDB(t)
	med := createTestMedication(t, NewMedicationRepository(db), "patient-1", "Aspirin")
	repo := NewDoseRepository(db)
	ctx := context.Background()
	day := schedule.MustParseDate("2024-01-04")

	existing := &models.DoseRecord{MedicationID: med.ID, Date: day, Time: "08:00"}
	existing.SetTaken(schedule.Bool(true))
	require.NoError(t, repo.Upsert(ctx, existing))

	n, err := repo.InsertMissing(ctx, []*models.DoseRecord{
		{MedicationID: med.ID, Date: day, Time: "08:00"},
		{MedicationID: med.ID, Date: day, Time: "20:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kept, err := repo.GetBySlot(ctx, med.ID, day, "08:00")
	require.NoError(t, err)
	assert.True(t, kept.Taken.Valid && kept.Taken.Bool, "existing status is untouched")
}

func TestDoseRepository_CascadeOnMedicationDelete(t *testing.T) {
	db := setupTestDB(t)
	meds := NewMedicationRepository(db)
	med := createTestMedication(t, meds, "patient-1", "Aspirin")
	repo := NewDoseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.DoseRecord{MedicationID: med.ID, Date: schedule.MustParseDate("2024-01-01"), Time: "08:00"}))
	require.NoError(t, meds.Delete(ctx, med.ID))

	doses, err := repo.ListByMedication(ctx, med.ID, schedule.Date{}, schedule.Date{})
	require.NoError(t, err)
	assert.Empty(t, doses)
}

func TestAuditRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.LogWithDetails(ctx, "user-1", "create", "medication", "med-1",
		map[string]interface{}{"name": "Aspirin"}, "127.0.0.1", "test-agent"))
	require.NoError(t, repo.LogWithDetails(ctx, "user-2", "update", "medication", "med-1", nil, "", ""))
	require.NoError(t, repo.LogWithDetails(ctx, "user-1", "create", "medication", "med-2", nil, "", ""))

	logs, err := repo.GetByEntity(ctx, "medication", "med-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "update", logs[0].Action)
	assert.False(t, logs[0].Details.Valid)
	assert.Equal(t, `{"name":"Aspirin"}`, logs[1].Details.String)
	assert.Equal(t, "user-1", logs[1].UserID.String)

	n, err := repo.DeleteOldLogs(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
