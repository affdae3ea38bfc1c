package repository

import (
	"context"
	"fmt"

	"github.com/Man0dya/qrlink/internal/models"
)

type VariantRepository interface {
	Create(ctx context.Context, variant *models.DestinationVariant) error
	GetActiveVariants(ctx context.Context, linkID int64) ([]models.DestinationVariant, error)
}

type variantRepository struct {
	db *PostgresDB
}

func NewVariantRepository(db *PostgresDB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) Create(ctx context.Context, variant *models.DestinationVariant) error {
	query := `
		INSERT INTO destination_variants (link_id, destination_url, weight_percent, is_active, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		variant.LinkID,
		variant.DestinationURL,
		variant.WeightPercent,
		variant.IsActive,
		variant.Position,
		variant.CreatedAt,
	).Scan(&variant.ID)

	if err != nil {
		return fmt.Errorf("failed to create destination variant: %w", err)
	}

	return nil
}

// GetActiveVariants возвращает активные варианты с ненулевым весом
// в стабильном порядке (position, id) — селектор на него опирается
func (r *variantRepository) GetActiveVariants(ctx context.Context, linkID int64) ([]models.DestinationVariant, error) {
	query := `
		SELECT id, link_id, destination_url, weight_percent, is_active, position, created_at
		FROM destination_variants
		WHERE link_id = $1 AND is_active = TRUE AND weight_percent > 0
		ORDER BY position, id
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get destination variants: %w", err)
	}
	defer rows.Close()

	var variants []models.DestinationVariant
	for rows.Next() {
		var v models.DestinationVariant
		if err := rows.Scan(&v.ID, &v.LinkID, &v.DestinationURL, &v.WeightPercent,
			&v.IsActive, &v.Position, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan destination variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating destination variants: %w", err)
	}

	return variants, nil
}
