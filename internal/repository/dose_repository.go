package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adherence-tracker/internal/database"
	"adherence-tracker/internal/models"
	"adherence-tracker/internal/schedule"

	"github.com/google/uuid"
)

type DoseRepository struct {
	db *database.DB
}

func NewDoseRepository(db *database.DB) *DoseRepository {
	return &DoseRepository{db: db}
}

const doseColumns = `id, medication_id, date, time, taken, updated_by, created_at, updated_at`

// ListByMedication returns stored doses of a medication between from and to
// inclusive. A zero bound is open.
func (r *DoseRepository) ListByMedication(ctx context.Context, medicationID string, from, to schedule.Date) ([]*models.DoseRecord, error) {
	query := `SELECT ` + doseColumns + ` FROM doses WHERE medication_id = ?`
	args := []interface{}{medicationID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date, time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	defer rows.Close()

	var doses []*models.DoseRecord
	for rows.Next() {
		dose, err := scanDose(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dose: %w", err)
		}
		doses = append(doses, dose)
	}
	return doses, rows.Err()
}

// GetByID retrieves a stored dose of a medication by its durable ID
func (r *DoseRepository) GetByID(ctx context.Context, medicationID, id string) (*models.DoseRecord, error) {
	query := `SELECT ` + doseColumns + ` FROM doses WHERE medication_id = ? AND id = ?`
	return r.getOne(ctx, query, medicationID, id)
}

// GetBySlot retrieves the stored dose for a medication, day and time slot
func (r *DoseRepository) GetBySlot(ctx context.Context, medicationID string, date schedule.Date, slot string) (*models.DoseRecord, error) {
	query := `SELECT ` + doseColumns + ` FROM doses WHERE medication_id = ? AND date = ? AND time = ?`
	return r.getOne(ctx, query, medicationID, date, slot)
}

func (r *DoseRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.DoseRecord, error) {
	dose, err := scanDose(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dose: %w", err)
	}
	return dose, nil
}

// Upsert writes the status of a dose. A dose already stored for the same
// medication, day and slot keeps its ID; the last write wins on status.
func (r *DoseRepository) Upsert(ctx context.Context, dose *models.DoseRecord) error {
	if dose.ID == "" {
		dose.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO doses (` + doseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(medication_id, date, time) DO UPDATE SET
			taken = excluded.taken,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		dose.ID,
		dose.MedicationID,
		dose.Date,
		dose.Time,
		dose.Taken,
		nullString(dose.UpdatedBy),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dose: %w", err)
	}

	stored, err := r.GetBySlot(ctx, dose.MedicationID, dose.Date, dose.Time)
	if err != nil {
		return err
	}
	*dose = *stored
	return nil
}

// InsertMissing stores unresolved doses, skipping slots that already have a
// record. It returns how many rows were written.
func (r *DoseRepository) InsertMissing(ctx context.Context, doses []*models.DoseRecord) (int, error) {
	if len(doses) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO doses (`+doseColumns+`)
		VALUES (?, ?, ?, ?, NULL, ?, ?, ?)
		ON CONFLICT(medication_id, date, time) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare dose insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, dose := range doses {
		if dose.ID == "" {
			dose.ID = uuid.NewString()
		}
		result, err := stmt.ExecContext(ctx, dose.ID, dose.MedicationID, dose.Date, dose.Time, nullString(dose.UpdatedBy), now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert dose: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			dose.CreatedAt = now
			dose.UpdatedAt = now
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit doses: %w", err)
	}
	return inserted, nil
}

func scanDose(row rowScanner) (*models.DoseRecord, error) {
	var (
		dose      models.DoseRecord
		updatedBy sql.NullString
	)
	err := row.Scan(
		&dose.ID,
		&dose.MedicationID,
		&dose.Date,
		&dose.Time,
		&dose.Taken,
		&updatedBy,
		&dose.CreatedAt,
		&dose.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	dose.UpdatedBy = updatedBy.String
	return &dose, nil
}
