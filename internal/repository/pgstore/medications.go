package pgstore

import (
	"context"
	"fmt"
	"time"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MedicationRepository struct {
	pool *pgxpool.Pool
}

const medicationColumns = `id, patient_id, name, dosage, unit, form, schedule, custom_interval, times,
		start_date, end_date, reminders, notes, created_by, created_at, updated_at`

func (r *MedicationRepository) Create(ctx context.Context, m *models.Medication) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	interval, err := intervalArg(m)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		m.ID, m.PatientID, m.Name, m.Dosage, m.Unit, m.Form, m.Schedule, interval, []string(m.Times),
		dateArg(m.StartDate), dateArg(m.EndDate), m.Reminders, textArg(m.Notes), textArg(m.CreatedBy),
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

func (r *MedicationRepository) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	m, err := scanMedication(row)
	if isNoRows(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return m, nil
}

func (r *MedicationRepository) Update(ctx context.Context, m *models.Medication) error {
	m.UpdatedAt = time.Now().UTC()

	interval, err := intervalArg(m)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE medications
		SET name = $1, dosage = $2, unit = $3, form = $4, schedule = $5, custom_interval = $6, times = $7,
		    start_date = $8, end_date = $9, reminders = $10, notes = $11, updated_at = $12
		WHERE id = $13`,
		m.Name, m.Dosage, m.Unit, m.Form, m.Schedule, interval, []string(m.Times),
		dateArg(m.StartDate), dateArg(m.EndDate), m.Reminders, textArg(m.Notes), m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MedicationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MedicationRepository) ListByPatient(ctx context.Context, patientID string) ([]*models.Medication, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE patient_id = $1 ORDER BY name, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var out []*models.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func intervalArg(m *models.Medication) (interface{}, error) {
	v, err := m.CustomInterval.Value()
	if err != nil {
		return nil, fmt.Errorf("encode custom interval: %w", err)
	}
	return v, nil
}

func scanMedication(row pgx.Row) (*models.Medication, error) {
	var (
		m         models.Medication
		interval  []byte
		times     []string
		start     time.Time
		end       *time.Time
		notes     *string
		createdBy *string
	)
	err := row.Scan(
		&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Unit, &m.Form, &m.Schedule, &interval, &times,
		&start, &end, &m.Reminders, &notes, &createdBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(interval) > 0 {
		if err := m.CustomInterval.UnmarshalJSON(interval); err != nil {
			return nil, fmt.Errorf("decode custom interval: %w", err)
		}
	}
	m.Times = models.TimeSlots(times)
	if m.Times == nil {
		m.Times = models.TimeSlots{}
	}
	m.StartDate = scanDate(&start)
	m.EndDate = scanDate(end)
	if notes != nil {
		m.Notes = *notes
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}
