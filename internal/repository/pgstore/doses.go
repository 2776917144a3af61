package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"
	"adherence-tracker/internal/schedule"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DoseRepository struct {
	pool *pgxpool.Pool
}

const doseColumns = `id, medication_id, date, time, taken, updated_by, created_at, updated_at`

func (r *DoseRepository) ListByMedication(ctx context.Context, medicationID string, from, to schedule.Date) ([]*models.DoseRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doseColumns+` FROM doses
		WHERE medication_id = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY date, time`,
		medicationID, dateArg(from), dateArg(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list doses: %w", err)
	}
	defer rows.Close()

	var out []*models.DoseRecord
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dose: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DoseRepository) GetByID(ctx context.Context, medicationID, id string) (*models.DoseRecord, error) {
	return r.getOne(ctx, `SELECT `+doseColumns+` FROM doses WHERE medication_id = $1 AND id = $2`, medicationID, id)
}

func (r *DoseRepository) GetBySlot(ctx context.Context, medicationID string, date schedule.Date, slot string) (*models.DoseRecord, error) {
	return r.getOne(ctx, `SELECT `+doseColumns+` FROM doses WHERE medication_id = $1 AND date = $2 AND time = $3`,
		medicationID, dateArg(date), slot)
}

func (r *DoseRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.DoseRecord, error) {
	d, err := scanDose(r.pool.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dose: %w", err)
	}
	return d, nil
}

// Upsert keeps the first ID stored for a slot; status and author are last write wins.
func (r *DoseRepository) Upsert(ctx context.Context, d *models.DoseRecord) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO doses (`+doseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (medication_id, date, time) DO UPDATE SET
			taken = EXCLUDED.taken,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING `+doseColumns,
		d.ID, d.MedicationID, dateArg(d.Date), d.Time, takenArg(d.Taken), textArg(d.UpdatedBy), now,
	)
	stored, err := scanDose(row)
	if err != nil {
		return fmt.Errorf("upsert dose: %w", err)
	}
	*d = *stored
	return nil
}

func (r *DoseRepository) InsertMissing(ctx context.Context, doses []*models.DoseRecord) (int, error) {
	if len(doses) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, d := range doses {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		batch.Queue(`
			INSERT INTO doses (`+doseColumns+`)
			VALUES ($1, $2, $3, $4, NULL, $5, $6, $6)
			ON CONFLICT (medication_id, date, time) DO NOTHING`,
			d.ID, d.MedicationID, dateArg(d.Date), d.Time, textArg(d.UpdatedBy), now,
		)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range doses {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert dose: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func takenArg(b sql.NullBool) interface{} {
	if !b.Valid {
		return nil
	}
	return b.Bool
}

func scanDose(row pgx.Row) (*models.DoseRecord, error) {
	var (
		d         models.DoseRecord
		date      time.Time
		taken     *bool
		updatedBy *string
	)
	if err := row.Scan(&d.ID, &d.MedicationID, &date, &d.Time, &taken, &updatedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Date = scanDate(&date)
	d.SetTaken(taken)
	if updatedBy != nil {
		d.UpdatedBy = *updatedBy
	}
	return &d, nil
}
