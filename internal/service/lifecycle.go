package service

import (
	"context"
	"errors"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"go.uber.org/zap"
)

// ErrGuardViolation переход нарушает ограждение конечного автомата
// (повторная апелляция, разрешение не-requested заявки). Молчаливого
// no-op нет: вызывающий всегда получает явный отказ.
var ErrGuardViolation = errors.New("переход запрещён текущим состоянием")

// LifecycleService конечный автомат жизненного цикла ссылки.
// Актор передаётся явно в каждую операцию: автомат не читает
// глобального состояния сессии.
type LifecycleService interface {
	Moderate(ctx context.Context, actor models.Actor, code string, action models.AdminAction, reason, ip string) (*models.Link, error)
	RequestApproval(ctx context.Context, actor models.Actor, code, note, ip string) (*models.Link, error)
}

type lifecycleService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	audit     *AuditLogger
	logger    *zap.Logger
}

// NewLifecycleService создаёт сервис жизненного цикла
func NewLifecycleService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	audit *AuditLogger,
	logger *zap.Logger,
) LifecycleService {
	return &lifecycleService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		audit:     audit,
		logger:    logger,
	}
}

// Moderate применяет админское действие к ссылке. Каждый успешный
// переход производит ровно одну запись аудита.
func (s *lifecycleService) Moderate(ctx context.Context, actor models.Actor, code string, action models.AdminAction, reason, ip string) (*models.Link, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	switch action {
	case models.ActionBan:
		err = s.linkRepo.SetStatus(ctx, link.ID, models.StatusBanned)
	case models.ActionActivate:
		err = s.linkRepo.SetStatus(ctx, link.ID, models.StatusActive)
	case models.ActionFlag:
		err = s.linkRepo.SetFlag(ctx, link.ID, reason)
	case models.ActionClearFlag:
		err = s.linkRepo.ClearFlag(ctx, link.ID)
	case models.ActionApproveRequest:
		err = s.linkRepo.ResolveApproval(ctx, link.ID, true)
	case models.ActionDenyRequest:
		err = s.linkRepo.ResolveApproval(ctx, link.ID, false)
	default:
		return nil, models.ErrInvalidAction
	}

	if err != nil {
		if errors.Is(err, repository.ErrApprovalConflict) {
			return nil, ErrGuardViolation
		}
		return nil, err
	}

	actorID := actor.ID
	details := map[string]any{}
	if reason != "" {
		details["reason"] = reason
	}
	s.audit.Record(ctx, &actorID, "admin:"+string(action), TargetTypeLink, link.ShortCode, details, ip)

	s.invalidate(ctx, link)

	return s.linkRepo.GetByShortCode(ctx, code)
}

// RequestApproval одноразовая апелляция владельца. Легальна только для
// неактивной ссылки с approval_request_status = none; конкурентные
// вызовы разруливаются условной записью в репозитории.
func (s *lifecycleService) RequestApproval(ctx context.Context, actor models.Actor, code, note, ip string) (*models.Link, error) {
	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && link.OwnerID != actor.ID {
		return nil, ErrUnauthorized
	}

	if err := s.linkRepo.RequestApproval(ctx, link.ID, note); err != nil {
		if errors.Is(err, repository.ErrApprovalConflict) {
			return nil, ErrGuardViolation
		}
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, "owner:request_approval", TargetTypeLink, link.ShortCode,
		map[string]any{"note": note}, ip)

	s.invalidate(ctx, link)

	return s.linkRepo.GetByShortCode(ctx, code)
}

func (s *lifecycleService) invalidate(ctx context.Context, link *models.Link) {
	key := repository.ResolveKey(link.CustomDomainID, link.ShortCode)
	if err := s.cacheRepo.Delete(ctx, key); err != nil {
		s.logger.Debug("Failed to invalidate link cache",
			zap.String("code", link.ShortCode), zap.Error(err))
	}
}
