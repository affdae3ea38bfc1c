package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
	// ErrApprovalConflict условная запись по approval_request_status не прошла:
	// переход нарушает одноразовую гарантию канала апелляций
	ErrApprovalConflict = errors.New("approval transition not allowed")
)

const linkColumns = `id, short_code, destination_url, qr_type, payload, chained_link_id,
		custom_domain_id, owner_id, status, is_flagged, flag_reason, flagged_at,
		approval_request_status, approval_note, redirect_type, expires_at, created_at`

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	GetResolvable(ctx context.Context, code string, domainID *int64) (*models.Link, error)
	UpdateModeration(ctx context.Context, id int64, destinationURL string, status models.LinkStatus, flagged bool, flagReason *string) error
	SetStatus(ctx context.Context, id int64, status models.LinkStatus) error
	SetFlag(ctx context.Context, id int64, reason string) error
	ClearFlag(ctx context.Context, id int64) error
	RequestApproval(ctx context.Context, id int64, note string) error
	ResolveApproval(ctx context.Context, id int64, approve bool) error
	Delete(ctx context.Context, code string) error
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_code, destination_url, qr_type, payload, chained_link_id,
			custom_domain_id, owner_id, status, is_flagged, flag_reason, flagged_at,
			approval_request_status, redirect_type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.ShortCode,
		link.DestinationURL,
		link.QRType,
		link.Payload,
		link.ChainedLinkID,
		link.CustomDomainID,
		link.OwnerID,
		link.Status,
		link.IsFlagged,
		link.FlagReason,
		link.FlaggedAt,
		link.ApprovalRequestStatus,
		link.RedirectType,
		link.ExpiresAt,
		link.CreatedAt,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, code))
}

func (r *linkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
}

// GetResolvable ищет сущность в рамках домена запроса: domainID == nil
// означает дефолтный домен, и код, привязанный к кастомному домену,
// через него не резолвится (и наоборот)
func (r *linkRepository) GetResolvable(ctx context.Context, code string, domainID *int64) (*models.Link, error) {
	var query string
	var args []any
	if domainID == nil {
		query = `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1 AND custom_domain_id IS NULL`
		args = []any{code}
	} else {
		query = `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1 AND custom_domain_id = $2`
		args = []any{code, *domainID}
	}
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, args...))
}

// UpdateModeration применяет результат повторной модерации при смене назначения.
// Заметка ревьюера сбрасывается: новое назначение — новый контекст.
func (r *linkRepository) UpdateModeration(ctx context.Context, id int64, destinationURL string, status models.LinkStatus, flagged bool, flagReason *string) error {
	query := `
		UPDATE links
		SET destination_url = $2,
			status = $3,
			is_flagged = $4,
			flag_reason = $5,
			flagged_at = CASE WHEN $4 THEN NOW() ELSE NULL END,
			approval_note = NULL
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, id, destinationURL, status, flagged, flagReason)
	if err != nil {
		return fmt.Errorf("failed to update link moderation state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) SetStatus(ctx context.Context, id int64, status models.LinkStatus) error {
	result, err := r.db.Pool.Exec(ctx, `UPDATE links SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set link status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) SetFlag(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE links
		SET is_flagged = TRUE, flag_reason = $2, flagged_at = NOW(), status = $3
		WHERE id = $1
	`
	result, err := r.db.Pool.Exec(ctx, query, id, reason, models.StatusPaused)
	if err != nil {
		return fmt.Errorf("failed to flag link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) ClearFlag(ctx context.Context, id int64) error {
	query := `
		UPDATE links
		SET is_flagged = FALSE, flag_reason = NULL, flagged_at = NULL, status = $2
		WHERE id = $1
	`
	result, err := r.db.Pool.Exec(ctx, query, id, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to clear link flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// RequestApproval одиночная условная запись (compare-and-set): переход
// none -> requested легален только для неактивной ссылки. Две конкурентные
// апелляции не могут пройти обе.
func (r *linkRepository) RequestApproval(ctx context.Context, id int64, note string) error {
	query := `
		UPDATE links
		SET approval_request_status = $2, approval_note = $3
		WHERE id = $1 AND approval_request_status = $4 AND status <> $5
	`
	result, err := r.db.Pool.Exec(ctx, query, id,
		models.ApprovalRequested, note, models.ApprovalNone, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to request approval: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrApprovalConflict
	}
	return nil
}

// ResolveApproval разрешает апелляцию ровно один раз: условие
// approval_request_status = 'requested' защищает от двойного применения
func (r *linkRepository) ResolveApproval(ctx context.Context, id int64, approve bool) error {
	var query string
	if approve {
		query = `
			UPDATE links
			SET approval_request_status = $2, status = $3, is_flagged = FALSE,
				flag_reason = NULL, flagged_at = NULL
			WHERE id = $1 AND approval_request_status = $4
		`
	} else {
		// Отказ не меняет статус: ни восстановления, ни ужесточения
		query = `
			UPDATE links
			SET approval_request_status = $2
			WHERE id = $1 AND approval_request_status = $3
		`
	}

	var result pgconn.CommandTag
	var err error
	if approve {
		result, err = r.db.Pool.Exec(ctx, query, id,
			models.ApprovalApproved, models.StatusActive, models.ApprovalRequested)
	} else {
		result, err = r.db.Pool.Exec(ctx, query, id,
			models.ApprovalDenied, models.ApprovalRequested)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve approval: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrApprovalConflict
	}
	return nil
}

func (r *linkRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM links WHERE short_code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) scanOne(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.DestinationURL,
		&link.QRType,
		&link.Payload,
		&link.ChainedLinkID,
		&link.CustomDomainID,
		&link.OwnerID,
		&link.Status,
		&link.IsFlagged,
		&link.FlagReason,
		&link.FlaggedAt,
		&link.ApprovalRequestStatus,
		&link.ApprovalNote,
		&link.RedirectType,
		&link.ExpiresAt,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

// isUniqueViolation проверяет нарушение уникального ограничения (23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
