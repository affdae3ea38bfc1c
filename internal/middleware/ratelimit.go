package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig конфигурация rate limiter. Публичный резолв и
// владельческий API ограничиваются раздельно: сканирование QR-кодов
// гораздо более бёрстовое, чем работа с API.
type RateLimiterConfig struct {
	RequestsPerSecond float64       // Лимит для API-запросов
	BurstSize         int           // Максимальный размер burst для API
	ResolveRPS        float64       // Лимит для публичного резолва (0 = как API)
	ResolveBurst      int           // Burst для публичного резолва (0 = как API)
	CleanupInterval   time.Duration // Интервал очистки неактивных посетителей
}

// DefaultRateLimiterConfig конфигурация по умолчанию
var DefaultRateLimiterConfig = RateLimiterConfig{
	RequestsPerSecond: 10,
	BurstSize:         20,
	ResolveRPS:        50,
	ResolveBurst:      100,
	CleanupInterval:   time.Minute,
}

// visitor представляет rate limiter для одного клиента в одной области
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter middleware для ограничения запросов с использованием алгоритма
// Token Bucket. Бакеты ключуются парой (область, ключ клиента), так что
// исчерпание API-лимита не блокирует резолв тех же клиентов и наоборот.
type RateLimiter struct {
	config   RateLimiterConfig
	visitors map[string]*visitor // "область|ключ" -> visitor
	mu       sync.RWMutex
}

// NewRateLimiter создаёт новый rate limiter middleware
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.ResolveRPS == 0 {
		config.ResolveRPS = config.RequestsPerSecond
	}
	if config.ResolveBurst == 0 {
		config.ResolveBurst = config.BurstSize
	}

	rl := &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
	}

	// Запускаем горутину для периодической очистки
	go rl.cleanupLoop()

	return rl
}

// cleanupLoop периодически удаляет неактивных посетителей
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup удаляет посетителей, которые не были активны долгое время
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if time.Since(v.lastSeen) > rl.config.CleanupInterval*3 {
			delete(rl.visitors, key)
		}
	}
}

// getLimiter возвращает или создаёт rate limiter для ключа в заданной области
func (rl *RateLimiter) getLimiter(scope, key string, rps float64, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	scopedKey := scope + "|" + key
	if v, exists := rl.visitors[scopedKey]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	rl.visitors[scopedKey] = &visitor{
		limiter:  limiter,
		lastSeen: time.Now(),
	}

	return limiter
}

// Middleware возвращает Gin middleware handler для API-запросов
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter("api", c.ClientIP(), rl.config.RequestsPerSecond, rl.config.BurstSize)
		rl.allow(c, limiter)
	}
}

// ResolveMiddleware возвращает handler для публичного резолва с отдельным,
// более щедрым бюджетом
func (rl *RateLimiter) ResolveMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter("resolve", c.ClientIP(), rl.config.ResolveRPS, rl.config.ResolveBurst)
		rl.allow(c, limiter)
	}
}

// MiddlewareWithKey возвращает rate limiter с кастомным ключом (например, API ключ)
func (rl *RateLimiter) MiddlewareWithKey(getKey func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getKey(c)
		if key == "" {
			key = c.ClientIP()
		}
		limiter := rl.getLimiter("api", key, rl.config.RequestsPerSecond, rl.config.BurstSize)
		rl.allow(c, limiter)
	}
}

func (rl *RateLimiter) allow(c *gin.Context, limiter *rate.Limiter) {
	if !limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     "Слишком много запросов, попробуйте позже",
			"retry_after": int(rl.config.CleanupInterval / time.Second),
		})
		c.Abort()
		return
	}

	c.Next()
}
