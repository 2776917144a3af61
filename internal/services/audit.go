package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"adherence-tracker/internal/models"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditTrail returns a medication's audit entries, newest first
func (s *AdherenceService) AuditTrail(ctx context.Context, medicationID string, limit, offset int) ([]*models.AuditLog, error) {
	if s.audit == nil {
		return []*models.AuditLog{}, nil
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.audit.GetByEntity(ctx, "medication", medicationID, limit, offset)
}

// PruneAudit deletes audit entries older than days
func (s *AdherenceService) PruneAudit(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("retention must be at least one day")
	}
	if s.audit == nil {
		return 0, nil
	}
	n, err := s.audit.DeleteOldLogs(ctx, days)
	if err != nil {
		return 0, err
	}
	s.logger.Info("pruned audit logs", zap.Int("days", days), zap.Int64("deleted", n))
	return n, nil
}
