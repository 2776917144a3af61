package services

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"
	"adherence-tracker/internal/schedule"
)

func (s *AdherenceService) scheduled(m *models.Medication, plan schedule.Plan, d schedule.Dose, today schedule.Date) models.ScheduledDose {
	return models.ScheduledDose{
		Dose:           d,
		MedicationID:   m.ID,
		MedicationName: m.Name,
		Dosage:         m.Dosage,
		Unit:           m.Unit,
		Status:         schedule.Classify(d, plan, today),
		Persisted:      d.Origin == schedule.Persisted,
	}
}

// DailyDoses returns the reconciled doses of every medication a patient has on
// day, ordered by time and then by medication name. A zero day means today.
func (s *AdherenceService) DailyDoses(ctx context.Context, patientID string, day schedule.Date) (out []models.ScheduledDose, err error) {
	ctx, span := s.tracer.Start(ctx, "DailyDoses")
	defer func() { endSpan(span, err) }()

	today := s.Today()
	if day.IsZero() {
		day = today
	}
	span.SetAttributes(
		attribute.String("patient.id", patientID),
		attribute.String("day", day.String()),
	)

	meds, err := s.meds.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out = []models.ScheduledDose{}
	for _, m := range meds {
		plan, err := s.plan(m)
		if err != nil {
			return nil, err
		}
		records, err := s.doses.ListByMedication(ctx, m.ID, day, day)
		if err != nil {
			return nil, err
		}
		for _, d := range s.policy.Reconcile(plan, models.Doses(records), day) {
			out = append(out, s.scheduled(m, plan, d, today))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].MedicationName < out[j].MedicationName
	})
	return out, nil
}

// RangeDoses returns the reconciled doses of one medication for every day in
// from..to inclusive. A zero to means the single day from.
func (s *AdherenceService) RangeDoses(ctx context.Context, medicationID string, from, to schedule.Date) (out []models.ScheduledDose, err error) {
	ctx, span := s.tracer.Start(ctx, "RangeDoses")
	span.SetAttributes(attribute.String("medication.id", medicationID))
	defer func() { endSpan(span, err) }()

	today := s.Today()
	from, to = defaultRange(from, to, today)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	m, err := s.meds.GetByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plan(m)
	if err != nil {
		return nil, err
	}
	records, err := s.doses.ListByMedication(ctx, m.ID, from, to)
	if err != nil {
		return nil, err
	}

	out = []models.ScheduledDose{}
	for _, d := range s.policy.ReconcileRange(plan, models.Doses(records), from, to) {
		out = append(out, s.scheduled(m, plan, d, today))
	}
	return out, nil
}

// Generate stores an unresolved record for every due slot in from..to that has
// none yet, clamped to the medication's own date range. It returns how many
// records were written.
func (s *AdherenceService) Generate(ctx context.Context, medicationID string, from, to schedule.Date, actor Actor) (n int, err error) {
	ctx, span := s.tracer.Start(ctx, "Generate")
	span.SetAttributes(attribute.String("medication.id", medicationID))
	defer func() { endSpan(span, err) }()

	from, to = defaultRange(from, to, s.Today())
	if err := checkRange(from, to); err != nil {
		return 0, err
	}

	m, err := s.meds.GetByID(ctx, medicationID)
	if err != nil {
		return 0, err
	}
	plan, err := s.plan(m)
	if err != nil {
		return 0, err
	}
	if len(plan.Times) == 0 {
		return 0, schedule.ErrNoSlotsDefined
	}
	records, err := s.doses.ListByMedication(ctx, m.ID, from, to)
	if err != nil {
		return 0, err
	}

	virtual := s.policy.Generate(plan, models.Doses(records), from, to)
	batch := make([]*models.DoseRecord, 0, len(virtual))
	for _, d := range virtual {
		batch = append(batch, &models.DoseRecord{
			MedicationID: m.ID,
			Date:         d.Date,
			Time:         d.Time,
			UpdatedBy:    actor.UserID,
		})
	}

	n, err = s.doses.InsertMissing(ctx, batch)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("doses.generated", n))
	if s.metrics != nil {
		s.metrics.DosesGenerated.Add(float64(n))
	}

	s.logger.Info("doses generated",
		zap.String("medication_id", m.ID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("count", n),
	)
	if n > 0 {
		s.record(ctx, actor, "doses_generated", m.ID, map[string]interface{}{
			"from":  from.String(),
			"to":    to.String(),
			"count": n,
		})
	}
	return n, nil
}

// SetDoseStatus writes taken, missed or (nil) unresolved for a dose. doseID is
// either a stored id or a derived <date>-<slot> id. Either way the dose's day is
// checked against the medication's date range; a derived id is materialized on
// first write.
func (s *AdherenceService) SetDoseStatus(ctx context.Context, medicationID, doseID string, taken *bool, actor Actor) (out models.ScheduledDose, err error) {
	ctx, span := s.tracer.Start(ctx, "SetDoseStatus")
	span.SetAttributes(
		attribute.String("medication.id", medicationID),
		attribute.String("dose.id", doseID),
	)
	defer func() { endSpan(span, err) }()

	m, err := s.meds.GetByID(ctx, medicationID)
	if err != nil {
		return out, err
	}
	plan, err := s.plan(m)
	if err != nil {
		return out, err
	}

	rec, err := s.doses.GetByID(ctx, m.ID, doseID)
	switch {
	case err == nil:
		if err := schedule.CheckRange(plan, rec.Date); err != nil {
			return out, err
		}
	case errors.Is(err, repository.ErrNotFound):
		ref, err := schedule.ParseID(doseID)
		if err != nil {
			return out, err
		}
		d, err := schedule.Materialize(plan, ref)
		if err != nil {
			return out, err
		}
		rec = &models.DoseRecord{MedicationID: m.ID, Date: d.Date, Time: d.Time}
	default:
		return out, err
	}

	rec.SetTaken(taken)
	rec.UpdatedBy = actor.UserID
	if err := s.doses.Upsert(ctx, rec); err != nil {
		return out, err
	}

	dose := rec.Dose()
	status := dose.Recorded()
	if s.metrics != nil {
		s.metrics.DoseUpdates.WithLabelValues(string(status)).Inc()
	}
	s.logger.Info("dose status updated",
		zap.String("medication_id", m.ID),
		zap.String("dose_id", rec.ID),
		zap.String("date", rec.Date.String()),
		zap.String("time", rec.Time),
		zap.String("status", string(status)),
		zap.String("user_id", actor.UserID),
	)
	s.record(ctx, actor, "dose_status_updated", m.ID, map[string]interface{}{
		"dose_id": rec.ID,
		"date":    rec.Date.String(),
		"time":    rec.Time,
		"status":  string(status),
	})

	return s.scheduled(m, plan, dose, s.Today()), nil
}

func defaultRange(from, to, today schedule.Date) (schedule.Date, schedule.Date) {
	if from.IsZero() {
		from = today
	}
	if to.IsZero() {
		to = from
	}
	return from, to
}
