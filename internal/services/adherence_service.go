package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/observability/metrics"
	"adherence-tracker/internal/schedule"
)

var (
	// ErrInvalidRange is returned when a date range ends before it starts
	ErrInvalidRange = errors.New("end date is before start date")
	// ErrRangeTooLarge caps range reconciliation and generation
	ErrRangeTooLarge = errors.New("date range is too large")
	// ErrEmptyPatch is returned for an update that changes nothing
	ErrEmptyPatch = errors.New("no fields to update")
)

// MaxRangeDays bounds range queries and explicit generation
const MaxRangeDays = 366

// MedicationStore persists medications. Both the sqlite repositories and
// pgstore satisfy it.
type MedicationStore interface {
	Create(ctx context.Context, m *models.Medication) error
	GetByID(ctx context.Context, id string) (*models.Medication, error)
	Update(ctx context.Context, m *models.Medication) error
	Delete(ctx context.Context, id string) error
	ListByPatient(ctx context.Context, patientID string) ([]*models.Medication, error)
}

// DoseStore persists dose records
type DoseStore interface {
	ListByMedication(ctx context.Context, medicationID string, from, to schedule.Date) ([]*models.DoseRecord, error)
	GetByID(ctx context.Context, medicationID, id string) (*models.DoseRecord, error)
	GetBySlot(ctx context.Context, medicationID string, date schedule.Date, slot string) (*models.DoseRecord, error)
	Upsert(ctx context.Context, dose *models.DoseRecord) error
	InsertMissing(ctx context.Context, doses []*models.DoseRecord) (int, error)
}

// AuditStore records and reads the audit trail
type AuditStore interface {
	LogWithDetails(ctx context.Context, userID, action, entityType, entityID string, details map[string]interface{}, ipAddress, userAgent string) error
	GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error)
	DeleteOldLogs(ctx context.Context, days int) (int64, error)
}

// Actor identifies who performs a mutation, for the audit trail
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// AdherenceService applies the scheduling engine to stored medications and
// doses
type AdherenceService struct {
	meds    MedicationStore
	doses   DoseStore
	audit   AuditStore
	policy  schedule.Policy
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*AdherenceService)

// WithPolicy selects the reading of custom weekly and monthly intervals
func WithPolicy(p schedule.Policy) Option {
	return func(s *AdherenceService) { s.policy = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *AdherenceService) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *AdherenceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AdherenceService) { s.metrics = m }
}

func NewAdherenceService(meds MedicationStore, doses DoseStore, audit AuditStore, opts ...Option) *AdherenceService {
	s := &AdherenceService{
		meds:   meds,
		doses:  doses,
		audit:  audit,
		now:    time.Now,
		logger: zap.NewNop(),
		tracer: otel.Tracer("adherence-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the service's current UTC calendar day
func (s *AdherenceService) Today() schedule.Date {
	return schedule.DateOf(s.now().UTC())
}

// plan builds the scheduling view of a medication and reports interval
// fallbacks
func (s *AdherenceService) plan(m *models.Medication) (schedule.Plan, error) {
	plan, err := m.Plan()
	if err != nil {
		return schedule.Plan{}, err
	}
	if plan.Rule.Fallback {
		s.logger.Warn("custom interval fell back to default",
			zap.String("medication_id", m.ID),
			zap.String("reason", plan.Rule.FallbackReason),
			zap.String("rule", plan.Rule.String()),
		)
		if s.metrics != nil {
			s.metrics.ScheduleFallbacks.WithLabelValues(plan.Rule.FallbackReason).Inc()
		}
	}
	return plan, nil
}

// checkRange validates an inclusive day range
func checkRange(from, to schedule.Date) error {
	if to.Before(from) {
		return ErrInvalidRange
	}
	if to.DaysSince(from) >= MaxRangeDays {
		return ErrRangeTooLarge
	}
	return nil
}

func (s *AdherenceService) record(ctx context.Context, actor Actor, action, medicationID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogWithDetails(ctx, actor.UserID, action, "medication", medicationID, details, actor.IPAddress, actor.UserAgent); err != nil {
		// The mutation already succeeded
		s.logger.Error("failed to write audit log",
			zap.String("action", action),
			zap.String("medication_id", medicationID),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
