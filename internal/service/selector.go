package service

import (
	"context"
	"math/rand/v2"

	"github.com/Man0dya/qrlink/internal/repository"
	"go.uber.org/zap"
)

// DestinationSelector взвешенный A/B-выбор назначения на момент резолва
type DestinationSelector struct {
	variantRepo repository.VariantRepository
	logger      *zap.Logger
	// drawBucket возвращает равномерное число из [1, 100]; подменяется в тестах
	drawBucket func() int
}

// NewDestinationSelector создаёт селектор вариантов
func NewDestinationSelector(variantRepo repository.VariantRepository, logger *zap.Logger) *DestinationSelector {
	return &DestinationSelector{
		variantRepo: variantRepo,
		logger:      logger,
		drawBucket:  func() int { return rand.IntN(100) + 1 },
	}
}

// Pick выбирает назначение для ссылки. Вес вариантов трактуется как
// проценты: остаток вероятностной массы при сумме < 100 уходит в fallback.
// Любая ошибка выборки тоже деградирует в fallback — редирект не падает.
func (s *DestinationSelector) Pick(ctx context.Context, linkID int64, fallback string) string {
	variants, err := s.variantRepo.GetActiveVariants(ctx, linkID)
	if err != nil {
		s.logger.Warn("Failed to load destination variants, using fallback",
			zap.Int64("link_id", linkID),
			zap.Error(err),
		)
		return fallback
	}

	if len(variants) == 0 {
		return fallback
	}

	bucket := s.drawBucket()
	running := 0
	for _, v := range variants {
		running += v.WeightPercent
		if bucket <= running {
			return v.DestinationURL
		}
	}

	return fallback
}
