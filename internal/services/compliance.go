package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"
	"adherence-tracker/internal/schedule"
)

// ComplianceQuery selects what a compliance summary covers
type ComplianceQuery struct {
	Window schedule.Window
	// MedicationID narrows a patient summary to one medication
	MedicationID string
	// Reconciled counts the virtual schedule as well as stored doses
	Reconciled bool
}

func (s *AdherenceService) summarize(regimens []schedule.Regimen, w schedule.Window, today schedule.Date, reconciled bool) schedule.Summary {
	if reconciled {
		return s.policy.ComputeReconciled(regimens, w, today)
	}
	return schedule.Compute(regimens, w, today)
}

func (s *AdherenceService) resolveWindow(q ComplianceQuery, today schedule.Date) (schedule.Window, error) {
	w := q.Window.Resolve(today)
	if w.End.Before(w.Start) {
		return w, ErrInvalidRange
	}
	// Only reconciled mode walks the window day by day
	if q.Reconciled && w.End.DaysSince(w.Start) >= MaxRangeDays {
		return w, ErrRangeTooLarge
	}
	return w, nil
}

func (s *AdherenceService) regimen(ctx context.Context, m *models.Medication, w schedule.Window) (schedule.Regimen, error) {
	plan, err := s.plan(m)
	if err != nil {
		return schedule.Regimen{}, err
	}
	records, err := s.doses.ListByMedication(ctx, m.ID, w.Start, w.End)
	if err != nil {
		return schedule.Regimen{}, err
	}
	return schedule.Regimen{Plan: plan, Doses: models.Doses(records)}, nil
}

func (s *AdherenceService) countQuery(reconciled bool) {
	if s.metrics == nil {
		return
	}
	mode := "persisted"
	if reconciled {
		mode = "reconciled"
	}
	s.metrics.ComplianceQueries.WithLabelValues(mode).Inc()
}

// PatientCompliance aggregates a patient's doses over the window, overall and
// per medication. By default only stored doses count.
func (s *AdherenceService) PatientCompliance(ctx context.Context, patientID string, q ComplianceQuery) (report *models.ComplianceReport, err error) {
	ctx, span := s.tracer.Start(ctx, "PatientCompliance")
	span.SetAttributes(
		attribute.String("patient.id", patientID),
		attribute.Bool("reconciled", q.Reconciled),
	)
	defer func() { endSpan(span, err) }()

	today := s.Today()
	w, err := s.resolveWindow(q, today)
	if err != nil {
		return nil, err
	}

	meds, err := s.meds.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if q.MedicationID != "" {
		meds = filterMedication(meds, q.MedicationID)
		if len(meds) == 0 {
			return nil, repository.ErrNotFound
		}
	}

	report = &models.ComplianceReport{
		PatientID:    patientID,
		Reconciled:   q.Reconciled,
		ByMedication: make([]models.MedicationCompliance, 0, len(meds)),
	}
	regimens := make([]schedule.Regimen, 0, len(meds))
	for _, m := range meds {
		r, err := s.regimen(ctx, m, w)
		if err != nil {
			return nil, err
		}
		regimens = append(regimens, r)
		report.ByMedication = append(report.ByMedication, models.MedicationCompliance{
			MedicationID:   m.ID,
			MedicationName: m.Name,
			Summary:        s.summarize([]schedule.Regimen{r}, w, today, q.Reconciled),
		})
	}
	report.Summary = s.summarize(regimens, w, today, q.Reconciled)

	s.countQuery(q.Reconciled)
	span.SetAttributes(attribute.Float64("compliance.percentage", report.Percentage))
	return report, nil
}

// MedicationCompliance aggregates one medication's doses over the window
func (s *AdherenceService) MedicationCompliance(ctx context.Context, medicationID string, q ComplianceQuery) (mc *models.MedicationCompliance, err error) {
	ctx, span := s.tracer.Start(ctx, "MedicationCompliance")
	span.SetAttributes(
		attribute.String("medication.id", medicationID),
		attribute.Bool("reconciled", q.Reconciled),
	)
	defer func() { endSpan(span, err) }()

	today := s.Today()
	w, err := s.resolveWindow(q, today)
	if err != nil {
		return nil, err
	}

	m, err := s.meds.GetByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	r, err := s.regimen(ctx, m, w)
	if err != nil {
		return nil, err
	}

	s.countQuery(q.Reconciled)
	return &models.MedicationCompliance{
		MedicationID:   m.ID,
		MedicationName: m.Name,
		Summary:        s.summarize([]schedule.Regimen{r}, w, today, q.Reconciled),
	}, nil
}

func filterMedication(meds []*models.Medication, id string) []*models.Medication {
	for _, m := range meds {
		if m.ID == id {
			return []*models.Medication{m}
		}
	}
	return nil
}
