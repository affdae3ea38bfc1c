package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Man0dya/qrlink/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]models.AuditEntry, error)
}

type auditRepository struct {
	db *PostgresDB
}

func NewAuditRepository(db *PostgresDB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_entries (id, actor_id, action, target_type, target_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		details,
		entry.IPAddress,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

func (r *auditRepository) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, details, ip_address, created_at
		FROM audit_entries
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType,
			&entry.TargetID, &details, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
