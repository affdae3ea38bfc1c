package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/jackc/pgx/v5"
)

var ErrDomainNotFound = errors.New("custom domain not found")

type DomainRepository interface {
	GetActiveByHost(ctx context.Context, host string) (*models.CustomDomain, error)
	GetOwnedActive(ctx context.Context, id int64, ownerID string) (*models.CustomDomain, error)
}

type domainRepository struct {
	db *PostgresDB
}

func NewDomainRepository(db *PostgresDB) DomainRepository {
	return &domainRepository{db: db}
}

// GetActiveByHost ищет активный кастомный домен по Host запроса.
// Порт отбрасывается: домен регистрируется без него.
func (r *domainRepository) GetActiveByHost(ctx context.Context, host string) (*models.CustomDomain, error) {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	query := `
		SELECT id, host, is_active, owner_id, created_at
		FROM custom_domains
		WHERE host = $1 AND is_active = TRUE
	`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, strings.ToLower(host)))
}

// GetOwnedActive проверяет, что домен принадлежит владельцу и активен
func (r *domainRepository) GetOwnedActive(ctx context.Context, id int64, ownerID string) (*models.CustomDomain, error) {
	query := `
		SELECT id, host, is_active, owner_id, created_at
		FROM custom_domains
		WHERE id = $1 AND owner_id = $2 AND is_active = TRUE
	`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, id, ownerID))
}

func (r *domainRepository) scanOne(row pgx.Row) (*models.CustomDomain, error) {
	domain := &models.CustomDomain{}
	err := row.Scan(&domain.ID, &domain.Host, &domain.IsActive, &domain.OwnerID, &domain.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDomainNotFound
		}
		return nil, fmt.Errorf("failed to get custom domain: %w", err)
	}
	return domain, nil
}
