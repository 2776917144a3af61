package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adherence-tracker/internal/database"
	"adherence-tracker/internal/models"

	"github.com/google/uuid"
)

type MedicationRepository struct {
	db *database.DB
}

func NewMedicationRepository(db *database.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

const medicationColumns = `id, patient_id, name, dosage, unit, form, schedule, custom_interval, times,
		start_date, end_date, reminders, notes, created_by, created_at, updated_at`

// Create creates a new medication. An empty ID is filled with a fresh UUID.
func (r *MedicationRepository) Create(ctx context.Context, medication *models.Medication) error {
	if medication.ID == "" {
		medication.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	medication.CreatedAt = now
	medication.UpdatedAt = now

	query := `
		INSERT INTO medications (` + medicationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		medication.ID,
		medication.PatientID,
		medication.Name,
		medication.Dosage,
		medication.Unit,
		medication.Form,
		medication.Schedule,
		medication.CustomInterval,
		medication.Times,
		medication.StartDate,
		medication.EndDate,
		medication.Reminders,
		nullString(medication.Notes),
		nullString(medication.CreatedBy),
		medication.CreatedAt,
		medication.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

// GetByID retrieves a medication by ID
func (r *MedicationRepository) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = ?`

	medication, err := scanMedication(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return medication, nil
}

// Update replaces the editable fields of a medication
func (r *MedicationRepository) Update(ctx context.Context, medication *models.Medication) error {
	medication.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE medications
		SET name = ?, dosage = ?, unit = ?, form = ?, schedule = ?, custom_interval = ?, times = ?,
		    start_date = ?, end_date = ?, reminders = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		medication.Name,
		medication.Dosage,
		medication.Unit,
		medication.Form,
		medication.Schedule,
		medication.CustomInterval,
		medication.Times,
		medication.StartDate,
		medication.EndDate,
		medication.Reminders,
		nullString(medication.Notes),
		medication.UpdatedAt,
		medication.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}
	return requireAffected(result)
}

// Delete permanently deletes a medication; its doses go with it
func (r *MedicationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return requireAffected(result)
}

// ListByPatient retrieves all medications of a patient
func (r *MedicationRepository) ListByPatient(ctx context.Context, patientID string) ([]*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE patient_id = ? ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var medications []*models.Medication
	for rows.Next() {
		medication, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		medications = append(medications, medication)
	}
	return medications, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedication(row rowScanner) (*models.Medication, error) {
	var (
		medication models.Medication
		notes      sql.NullString
		createdBy  sql.NullString
	)
	err := row.Scan(
		&medication.ID,
		&medication.PatientID,
		&medication.Name,
		&medication.Dosage,
		&medication.Unit,
		&medication.Form,
		&medication.Schedule,
		&medication.CustomInterval,
		&medication.Times,
		&medication.StartDate,
		&medication.EndDate,
		&medication.Reminders,
		&notes,
		&createdBy,
		&medication.CreatedAt,
		&medication.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	medication.Notes = notes.String
	medication.CreatedBy = createdBy.String
	return &medication, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
