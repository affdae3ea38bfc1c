package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupSelector создаёт селектор с детерминированной выборкой bucket
func setupSelector(t *testing.T, buckets ...int) (*DestinationSelector, *mocks.MockVariantRepository) {
	t.Helper()
	variantRepo := mocks.NewMockVariantRepository()
	logger, _ := zap.NewDevelopment()
	s := NewDestinationSelector(variantRepo, logger)

	i := 0
	s.drawBucket = func() int {
		b := buckets[i%len(buckets)]
		i++
		return b
	}
	return s, variantRepo
}

func addVariant(t *testing.T, repo *mocks.MockVariantRepository, linkID int64, url string, weight, position int) {
	t.Helper()
	err := repo.Create(context.Background(), &models.DestinationVariant{
		LinkID:         linkID,
		DestinationURL: url,
		WeightPercent:  weight,
		IsActive:       true,
		Position:       position,
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)
}

// TestSelector_NoVariants проверяет возврат fallback без вариантов
func TestSelector_NoVariants(t *testing.T) {
	s, _ := setupSelector(t, 50)

	dest := s.Pick(context.Background(), 1, "https://fallback.example")
	assert.Equal(t, "https://fallback.example", dest)
}

// TestSelector_WeightedSplit проверяет границы корзин при весах 70/30
func TestSelector_WeightedSplit(t *testing.T) {
	cases := []struct {
		bucket int
		want   string
	}{
		{1, "https://a.example"},
		{70, "https://a.example"},
		{71, "https://b.example"},
		{100, "https://b.example"},
	}

	for _, tc := range cases {
		s, repo := setupSelector(t, tc.bucket)
		addVariant(t, repo, 1, "https://a.example", 70, 0)
		addVariant(t, repo, 1, "https://b.example", 30, 1)

		dest := s.Pick(context.Background(), 1, "https://fallback.example")
		assert.Equal(t, tc.want, dest, "bucket=%d", tc.bucket)
	}
}

// TestSelector_ProbabilityLaw проверяет эмпирическое распределение по всем корзинам:
// при весах 70/30 ровно 70 корзин из 100 уходят в первый вариант
func TestSelector_ProbabilityLaw(t *testing.T) {
	buckets := make([]int, 100)
	for i := range buckets {
		buckets[i] = i + 1
	}
	s, repo := setupSelector(t, buckets...)
	addVariant(t, repo, 1, "https://a.example", 70, 0)
	addVariant(t, repo, 1, "https://b.example", 30, 1)

	counts := map[string]int{}
	for i := 0; i < 100; i++ {
		counts[s.Pick(context.Background(), 1, "https://fallback.example")]++
	}

	assert.Equal(t, 70, counts["https://a.example"])
	assert.Equal(t, 30, counts["https://b.example"])
	assert.Equal(t, 0, counts["https://fallback.example"])
}

// TestSelector_WeightShortfall проверяет провал в fallback при сумме весов < 100:
// при 40/20 остаток в 40 корзин уходит в назначение самой ссылки
func TestSelector_WeightShortfall(t *testing.T) {
	buckets := make([]int, 100)
	for i := range buckets {
		buckets[i] = i + 1
	}
	s, repo := setupSelector(t, buckets...)
	addVariant(t, repo, 1, "https://a.example", 40, 0)
	addVariant(t, repo, 1, "https://b.example", 20, 1)

	counts := map[string]int{}
	for i := 0; i < 100; i++ {
		counts[s.Pick(context.Background(), 1, "https://fallback.example")]++
	}

	assert.Equal(t, 40, counts["https://a.example"])
	assert.Equal(t, 20, counts["https://b.example"])
	assert.Equal(t, 40, counts["https://fallback.example"])
}

// TestSelector_RepositoryError проверяет деградацию в fallback при ошибке выборки
func TestSelector_RepositoryError(t *testing.T) {
	s, repo := setupSelector(t, 50)
	repo.Err = errors.New("db down")

	dest := s.Pick(context.Background(), 1, "https://fallback.example")
	assert.Equal(t, "https://fallback.example", dest)
}
