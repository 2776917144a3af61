package pgstore

import (
	"context"
	"fmt"

	"adherence-tracker/internal/models"
	"adherence-tracker/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func (r *AuditRepository) LogWithDetails(ctx context.Context, userID, action, entityType, entityID string, details map[string]interface{}, ipAddress, userAgent string) error {
	entry, err := repository.NewAuditEntry(userID, action, entityType, entityID, details, ipAddress, userAgent)
	if err != nil {
		return err
	}

	var detailsArg interface{}
	if entry.Details.Valid {
		detailsArg = entry.Details.String
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		textArg(userID), action, entityType, textArg(entityID), detailsArg, textArg(ipAddress), textArg(userAgent),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, details::text, ip_address, user_agent, timestamp
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp DESC, id DESC
		LIMIT $3 OFFSET $4`,
		entityType, entityID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("get audit logs by entity: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.EntityType, &l.EntityID, &l.Details, &l.IPAddress, &l.UserAgent, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *AuditRepository) DeleteOldLogs(ctx context.Context, days int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE timestamp < now() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("delete old audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
