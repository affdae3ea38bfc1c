package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"time"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/moderation"
	"github.com/Man0dya/qrlink/internal/repository"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrInvalidURL      = errors.New("невалидный URL")
	ErrInvalidCode     = errors.New("невалидный кастомный код")
	ErrInvalidDomain   = errors.New("кастомный домен не принадлежит владельцу или неактивен")
	ErrInvalidRedirect = errors.New("невалидный тип редиректа")
	ErrCodeAllocation  = errors.New("не удалось выделить уникальный короткий код")
	ErrUnauthorized    = errors.New("операция не разрешена для этого актора")
	ErrInvalidWeight   = errors.New("суммарный вес вариантов превышает 100")
)

// Константы сервиса
const (
	defaultTTL = 24 * time.Hour
	maxTTL     = 30 * 24 * time.Hour
	codeLength = 8
	charset    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// maxCodeAttempts граница повторов при коллизии сгенерированного кода
	maxCodeAttempts = 5
)

var codePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,32}$`)

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput, ip string) (*models.Link, error)
	UpdateDestination(ctx context.Context, actor models.Actor, code, destinationURL, ip string) (*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	DeleteLink(ctx context.Context, actor models.Actor, code, ip string) error
	AddVariant(ctx context.Context, actor models.Actor, code string, destinationURL string, weight int) (*models.DestinationVariant, error)
}

// linkService реализация сервиса ссылок
type linkService struct {
	linkRepo    repository.LinkRepository
	variantRepo repository.VariantRepository
	domainRepo  repository.DomainRepository
	cacheRepo   repository.CacheRepository
	decider     *moderation.Decider
	audit       *AuditLogger
	logger      *zap.Logger
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(
	linkRepo repository.LinkRepository,
	variantRepo repository.VariantRepository,
	domainRepo repository.DomainRepository,
	cacheRepo repository.CacheRepository,
	decider *moderation.Decider,
	audit *AuditLogger,
	logger *zap.Logger,
) LinkService {
	return &linkService{
		linkRepo:    linkRepo,
		variantRepo: variantRepo,
		domainRepo:  domainRepo,
		cacheRepo:   cacheRepo,
		decider:     decider,
		audit:       audit,
		logger:      logger,
	}
}

// CreateLink создаёт новую короткую ссылку. Модерация выполняется
// до первой записи: начальное состояние уже содержит её вердикт.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput, ip string) (*models.Link, error) {
	if err := validateURL(input.DestinationURL); err != nil {
		return nil, err
	}

	// Валидация кастомного кода
	if input.CustomCode != nil && *input.CustomCode != "" {
		if !codePattern.MatchString(*input.CustomCode) {
			return nil, ErrInvalidCode
		}
	}

	// Кастомный домен должен принадлежать владельцу и быть активным
	if input.CustomDomainID != nil {
		if _, err := s.domainRepo.GetOwnedActive(ctx, *input.CustomDomainID, input.OwnerID); err != nil {
			if errors.Is(err, repository.ErrDomainNotFound) {
				return nil, ErrInvalidDomain
			}
			return nil, err
		}
	}

	redirectType := models.RedirectTemporary
	if input.RedirectType != nil {
		if *input.RedirectType != models.RedirectPermanent && *input.RedirectType != models.RedirectTemporary {
			return nil, ErrInvalidRedirect
		}
		redirectType = *input.RedirectType
	}

	// Расчёт TTL
	var expiresAt *time.Time
	if input.ExpiresIn != nil && *input.ExpiresIn > 0 {
		ttl := time.Duration(*input.ExpiresIn) * time.Minute
		if ttl > maxTTL {
			ttl = maxTTL
		}
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	// Модерация назначения до первой записи
	decision := s.decider.Decide(input.DestinationURL)
	status, flagged, flagReason := applyDecision(decision)

	link := &models.Link{
		DestinationURL:        input.DestinationURL,
		CustomDomainID:        input.CustomDomainID,
		OwnerID:               input.OwnerID,
		Status:                status,
		IsFlagged:             flagged,
		FlagReason:            flagReason,
		ApprovalRequestStatus: models.ApprovalNone,
		RedirectType:          redirectType,
		ExpiresAt:             expiresAt,
		CreatedAt:             time.Now(),
	}
	if flagged {
		now := time.Now()
		link.FlaggedAt = &now
	}

	if err := s.persistWithCode(ctx, link, input.CustomCode); err != nil {
		return nil, err
	}

	// Каждый не-allow вердикт автоматической модерации аудируется (actor = система)
	if decision.Action != moderation.ActionAllow {
		s.audit.Record(ctx, nil, "moderation:"+string(decision.Action), TargetTypeLink,
			link.ShortCode, map[string]any{
				"score":  decision.Score,
				"reason": decision.Reason,
			}, ip)
	}

	// Кэширование
	ttl := defaultTTL
	if expiresAt != nil {
		ttl = time.Until(*expiresAt)
	}
	cacheKey := repository.ResolveKey(link.CustomDomainID, link.ShortCode)
	if err := s.cacheRepo.Set(ctx, cacheKey, link, ttl); err != nil {
		s.logger.Debug("Failed to cache link", zap.String("code", link.ShortCode), zap.Error(err))
	}

	return link, nil
}

// persistWithCode пишет ссылку, выделяя короткий код. Случайная генерация
// повторяется при коллизии не более maxCodeAttempts раз.
func (s *linkService) persistWithCode(ctx context.Context, link *models.Link, customCode *string) error {
	if customCode != nil && *customCode != "" {
		link.ShortCode = *customCode
		return s.linkRepo.Create(ctx, link)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}
		link.ShortCode = code

		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return err
		}
	}

	return ErrCodeAllocation
}

// UpdateDestination меняет назначение и повторно прогоняет модерацию,
// ровно как при создании. Прежняя заметка ревьюера сбрасывается.
func (s *linkService) UpdateDestination(ctx context.Context, actor models.Actor, code, destinationURL, ip string) (*models.Link, error) {
	if err := validateURL(destinationURL); err != nil {
		return nil, err
	}

	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && link.OwnerID != actor.ID {
		return nil, ErrUnauthorized
	}

	decision := s.decider.Decide(destinationURL)
	status, flagged, flagReason := applyDecision(decision)

	if err := s.linkRepo.UpdateModeration(ctx, link.ID, destinationURL, status, flagged, flagReason); err != nil {
		return nil, err
	}

	if decision.Action != moderation.ActionAllow {
		s.audit.Record(ctx, nil, "moderation:"+string(decision.Action), TargetTypeLink,
			link.ShortCode, map[string]any{
				"score":  decision.Score,
				"reason": decision.Reason,
				"editor": actor.ID,
			}, ip)
	}

	// Сбрасываем кэш: закэшированное состояние устарело
	s.invalidateCache(ctx, link)

	return s.linkRepo.GetByShortCode(ctx, code)
}

// GetLink получает ссылку по короткому коду без учёта домена (владельческий API)
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	return s.linkRepo.GetByShortCode(ctx, code)
}

// DeleteLink удаляет ссылку. Доступно владельцу и админу.
func (s *linkService) DeleteLink(ctx context.Context, actor models.Actor, code, ip string) error {
	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && link.OwnerID != actor.ID {
		return ErrUnauthorized
	}

	s.invalidateCache(ctx, link)

	if err := s.linkRepo.Delete(ctx, code); err != nil {
		return err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, "link:delete", TargetTypeLink, code, nil, ip)
	return nil
}

// AddVariant добавляет A/B-вариант назначения. Суммарный вес активных
// вариантов не может превысить 100: дефицит до 100 уходит основному
// назначению, избытка не бывает.
func (s *linkService) AddVariant(ctx context.Context, actor models.Actor, code string, destinationURL string, weight int) (*models.DestinationVariant, error) {
	if err := validateURL(destinationURL); err != nil {
		return nil, err
	}
	if weight < 1 || weight > 100 {
		return nil, ErrInvalidWeight
	}

	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && link.OwnerID != actor.ID {
		return nil, ErrUnauthorized
	}

	existing, err := s.variantRepo.GetActiveVariants(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	total := weight
	position := 0
	for _, v := range existing {
		total += v.WeightPercent
		if v.Position >= position {
			position = v.Position + 1
		}
	}
	if total > 100 {
		return nil, ErrInvalidWeight
	}

	variant := &models.DestinationVariant{
		LinkID:         link.ID,
		DestinationURL: destinationURL,
		WeightPercent:  weight,
		IsActive:       true,
		Position:       position,
		CreatedAt:      time.Now(),
	}
	if err := s.variantRepo.Create(ctx, variant); err != nil {
		return nil, err
	}

	return variant, nil
}

func (s *linkService) invalidateCache(ctx context.Context, link *models.Link) {
	key := repository.ResolveKey(link.CustomDomainID, link.ShortCode)
	if err := s.cacheRepo.Delete(ctx, key); err != nil {
		s.logger.Debug("Failed to invalidate link cache",
			zap.String("code", link.ShortCode), zap.Error(err))
	}
}

// applyDecision отображает вердикт модерации на персистентные поля
func applyDecision(d moderation.Decision) (models.LinkStatus, bool, *string) {
	switch d.Action {
	case moderation.ActionBan:
		reason := d.Reason
		return models.StatusBanned, true, &reason
	case moderation.ActionPause:
		reason := d.Reason
		return models.StatusPaused, true, &reason
	default:
		return models.StatusActive, false, nil
	}
}

// generateShortCode генерирует случайный короткий код длиной 8 символов
func generateShortCode() (string, error) {
	result := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// validateURL проверяет, что строка разбирается как URL. Оценка схемы
// и хоста — дело модерации, а не валидации.
func validateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}
	if _, err := url.Parse(raw); err != nil {
		return ErrInvalidURL
	}
	return nil
}
