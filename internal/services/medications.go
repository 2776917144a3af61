package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"adherence-tracker/internal/models"
)

// CreateMedication validates and stores a new medication
func (s *AdherenceService) CreateMedication(ctx context.Context, m *models.Medication, actor Actor) (err error) {
	ctx, span := s.tracer.Start(ctx, "CreateMedication")
	defer func() { endSpan(span, err) }()

	if m.CreatedBy == "" {
		m.CreatedBy = actor.UserID
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := s.plan(m); err != nil {
		return err
	}
	if err := s.meds.Create(ctx, m); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("medication.id", m.ID))

	s.logger.Info("medication created",
		zap.String("medication_id", m.ID),
		zap.String("patient_id", m.PatientID),
		zap.String("user_id", actor.UserID),
	)
	s.record(ctx, actor, "medication_created", m.ID, map[string]interface{}{
		"patient_id": m.PatientID,
		"name":       m.Name,
		"schedule":   m.Schedule,
	})
	return nil
}

// GetMedication returns one medication or repository.ErrNotFound
func (s *AdherenceService) GetMedication(ctx context.Context, id string) (*models.Medication, error) {
	return s.meds.GetByID(ctx, id)
}

// ListMedications returns a patient's medications ordered by name
func (s *AdherenceService) ListMedications(ctx context.Context, patientID string) ([]*models.Medication, error) {
	return s.meds.ListByPatient(ctx, patientID)
}

// UpdateMedication applies a partial update and revalidates the result
func (s *AdherenceService) UpdateMedication(ctx context.Context, id string, patch *models.MedicationPatch, actor Actor) (m *models.Medication, err error) {
	ctx, span := s.tracer.Start(ctx, "UpdateMedication")
	span.SetAttributes(attribute.String("medication.id", id))
	defer func() { endSpan(span, err) }()

	if patch == nil || patch.Empty() {
		return nil, ErrEmptyPatch
	}

	m, err = s.meds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.plan(m); err != nil {
		return nil, err
	}
	if err := s.meds.Update(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("medication updated",
		zap.String("medication_id", m.ID),
		zap.String("user_id", actor.UserID),
	)
	s.record(ctx, actor, "medication_updated", m.ID, map[string]interface{}{
		"schedule": m.Schedule,
		"times":    []string(m.Times),
	})
	return m, nil
}

// DeleteMedication removes a medication together with its dose history
func (s *AdherenceService) DeleteMedication(ctx context.Context, id string, actor Actor) (err error) {
	ctx, span := s.tracer.Start(ctx, "DeleteMedication")
	span.SetAttributes(attribute.String("medication.id", id))
	defer func() { endSpan(span, err) }()

	m, err := s.meds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.meds.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("medication deleted",
		zap.String("medication_id", id),
		zap.String("user_id", actor.UserID),
	)
	s.record(ctx, actor, "medication_deleted", id, map[string]interface{}{
		"patient_id": m.PatientID,
		"name":       m.Name,
	})
	return nil
}
