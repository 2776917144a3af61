package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"adherence-tracker/internal/database"
	"adherence-tracker/internal/models"
)

type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log creates a new audit log entry
func (r *AuditRepository) Log(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details, ip_address, user_agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	result, err := r.db.ExecContext(ctx,
		query,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// LogWithDetails logs an action with structured details
func (r *AuditRepository) LogWithDetails(ctx context.Context, userID, action, entityType, entityID string, details map[string]interface{}, ipAddress, userAgent string) error {
	entry, err := NewAuditEntry(userID, action, entityType, entityID, details, ipAddress, userAgent)
	if err != nil {
		return err
	}
	return r.Log(ctx, entry)
}

// NewAuditEntry builds an entry, encoding details as JSON
func NewAuditEntry(userID, action, entityType, entityID string, details map[string]interface{}, ipAddress, userAgent string) (*models.AuditLog, error) {
	var detailsJSON sql.NullString
	if details != nil {
		jsonBytes, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(jsonBytes), Valid: true}
	}

	return &models.AuditLog{
		UserID:     nullString(userID),
		Action:     action,
		EntityType: entityType,
		EntityID:   nullString(entityID),
		Details:    detailsJSON,
		IPAddress:  nullString(ipAddress),
		UserAgent:  nullString(userAgent),
	}, nil
}

// GetByEntity retrieves audit logs for a specific entity, newest first
func (r *AuditRepository) GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, timestamp
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, entityType, entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs by entity: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.EntityType,
			&log.EntityID,
			&log.Details,
			&log.IPAddress,
			&log.UserAgent,
			&log.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// DeleteOldLogs deletes audit logs older than specified days
func (r *AuditRepository) DeleteOldLogs(ctx context.Context, days int) (int64, error) {
	query := `
		DELETE FROM audit_logs
		WHERE timestamp < datetime('now', '-' || ? || ' days')
	`
	result, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
