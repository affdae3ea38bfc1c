package service

import (
	"context"
	"errors"
	"time"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"go.uber.org/zap"
)

// Терминальные исходы резолва
var (
	// ErrLinkInactive ссылка приостановлена или забанена
	ErrLinkInactive = errors.New("ссылка отключена")
	// ErrLinkExpired срок действия ссылки истёк
	ErrLinkExpired = errors.New("срок действия ссылки истёк")
)

// ResolutionKind вид ответа резолвера
type ResolutionKind string

const (
	KindRedirect ResolutionKind = "redirect"
	KindVCard    ResolutionKind = "vcard"
	KindBio      ResolutionKind = "bio"
	KindWifi     ResolutionKind = "wifi"
)

// Resolution результат успешного резолва
type Resolution struct {
	Kind         ResolutionKind
	Link         *models.Link
	Destination  string
	RedirectCode int
	Payload      any
}

// RequestMeta метаданные входящего запроса для записи клика
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
}

// Resolver превращает пару (host, code) в редирект или рендерящийся ответ
type Resolver interface {
	Resolve(ctx context.Context, host, code string, meta RequestMeta) (*Resolution, error)
}

type resolver struct {
	linkRepo   repository.LinkRepository
	domainRepo repository.DomainRepository
	cacheRepo  repository.CacheRepository
	selector   *DestinationSelector
	clicks     ClickProcessor
	logger     *zap.Logger
}

// NewResolver создаёт резолвер
func NewResolver(
	linkRepo repository.LinkRepository,
	domainRepo repository.DomainRepository,
	cacheRepo repository.CacheRepository,
	selector *DestinationSelector,
	clicks ClickProcessor,
	logger *zap.Logger,
) Resolver {
	return &resolver{
		linkRepo:   linkRepo,
		domainRepo: domainRepo,
		cacheRepo:  cacheRepo,
		selector:   selector,
		clicks:     clicks,
		logger:     logger,
	}
}

// Resolve выполняет полный цикл: доменная изоляция, проход по QR-цепочке,
// проверка жизненного цикла, A/B-выбор назначения и запись клика.
// Клик ставится в очередь последним, когда успешный ответ уже собран:
// терминальные ответы (not found / disabled / expired / битый payload)
// кликов не производят.
func (r *resolver) Resolve(ctx context.Context, host, code string, meta RequestMeta) (*Resolution, error) {
	domainID, err := r.scopeDomain(ctx, host)
	if err != nil {
		return nil, err
	}

	entity, err := r.lookup(ctx, domainID, code)
	if err != nil {
		return nil, err
	}

	// Проход по цепочке QR -> короткая ссылка. Жизненный цикл проверяется
	// у обоих звеньев: забаненный QR не резолвится через живую ссылку.
	effective := entity
	var originatingQR *int64
	if entity.ChainedLinkID != nil {
		if err := checkLifecycle(entity); err != nil {
			return nil, err
		}
		chained, err := r.linkRepo.GetByID(ctx, *entity.ChainedLinkID)
		if err != nil {
			return nil, err
		}
		qrID := entity.ID
		originatingQR = &qrID
		effective = chained
	}

	if err := checkLifecycle(effective); err != nil {
		return nil, err
	}

	var resolution *Resolution
	if effective.QRType != nil && *effective.QRType != models.QRTypeURL {
		// Не-URL полезные нагрузки рендерятся и обходят A/B-селектор
		payload, err := models.DecodePayload(*effective.QRType, effective.Payload)
		if err != nil {
			return nil, err
		}
		resolution = &Resolution{
			Kind:    kindOf(*effective.QRType),
			Link:    effective,
			Payload: payload,
		}
	} else {
		destination := r.selector.Pick(ctx, effective.ID, effective.DestinationURL)

		redirectCode := effective.RedirectType
		if redirectCode != models.RedirectPermanent {
			redirectCode = models.RedirectTemporary
		}

		resolution = &Resolution{
			Kind:         KindRedirect,
			Link:         effective,
			Destination:  destination,
			RedirectCode: redirectCode,
		}
	}

	// Запись клика fire-and-forget, и только когда успешный ответ уже собран:
	// битая полезная нагрузка — такой же терминальный исход, как и пауза
	if err := r.clicks.RecordClick(ctx, &models.ClickEvent{
		LinkID:          effective.ID,
		OriginatingQRID: originatingQR,
		ShortCode:       effective.ShortCode,
		IPAddress:       meta.IP,
		UserAgent:       meta.UserAgent,
		Referer:         meta.Referer,
	}); err != nil {
		r.logger.Debug("Failed to enqueue click event", zap.Error(err))
	}

	return resolution, nil
}

// scopeDomain определяет доменную область поиска: зарегистрированный
// активный кастомный домен ограничивает кандидатов его id, всё прочее
// резолвится в дефолтной области
func (r *resolver) scopeDomain(ctx context.Context, host string) (*int64, error) {
	domain, err := r.domainRepo.GetActiveByHost(ctx, host)
	if err != nil {
		if errors.Is(err, repository.ErrDomainNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.ID, nil
}

// lookup ищет сущность сначала в кэше, затем в БД (cache-aside)
func (r *resolver) lookup(ctx context.Context, domainID *int64, code string) (*models.Link, error) {
	key := repository.ResolveKey(domainID, code)

	link, err := r.cacheRepo.Get(ctx, key)
	if err == nil {
		return link, nil
	}

	link, err = r.linkRepo.GetResolvable(ctx, code, domainID)
	if err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if link.ExpiresAt != nil {
		ttl = time.Until(*link.ExpiresAt)
	}
	if ttl > 0 {
		if err := r.cacheRepo.Set(ctx, key, link, ttl); err != nil {
			r.logger.Debug("Failed to cache resolved link",
				zap.String("code", code), zap.Error(err))
		}
	}

	return link, nil
}

// checkLifecycle проверяет терминальные состояния. Истечение срока
// оценивается и при status=active: expired — вычисляемое состояние.
func checkLifecycle(link *models.Link) error {
	if link.Status != models.StatusActive {
		return ErrLinkInactive
	}
	if link.IsExpired(time.Now()) {
		return ErrLinkExpired
	}
	return nil
}

func kindOf(t models.QRType) ResolutionKind {
	switch t {
	case models.QRTypeVCard:
		return KindVCard
	case models.QRTypeBio:
		return KindBio
	case models.QRTypeWifi:
		return KindWifi
	default:
		return KindRedirect
	}
}
