package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Man0dya/qrlink/internal/middleware"
	"github.com/Man0dya/qrlink/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRateLimiter_Middleware проверяет работу rate limiter middleware
func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Создаём rate limiter с лимитом 5 запросов в секунду и burst 5
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
	})

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Первые 5 запросов должны пройти (в пределах burst лимита)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Следующие запросы должны быть ограничены
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// TestRateLimiter_MiddlewareWithKey проверяет rate limiting с кастомным ключом
func TestRateLimiter_MiddlewareWithKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Создаём rate limiter с лимитом 2 запроса в секунду
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
	})

	// Функция получения ключа из заголовка
	keyGetter := func(c *gin.Context) string {
		return c.GetHeader("X-User-ID")
	}

	router := gin.New()
	router.Use(rl.MiddlewareWithKey(keyGetter))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Пользователь 1 - первые 2 запроса успешны
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set("X-User-ID", "user1")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Пользователь 1 - третий запрос должен быть ограничен
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", "user1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Пользователь 2 - запрос успешен (другой ключ)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", "user2")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRateLimiter_ResolveScopeIsolated проверяет, что бюджеты API и резолва
// раздельны: клиент, упершийся в API-лимит, всё ещё может резолвить коды
func TestRateLimiter_ResolveScopeIsolated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		BurstSize:         2,
		ResolveRPS:        10,
		ResolveBurst:      10,
		CleanupInterval:   time.Minute,
	})

	router := gin.New()
	api := router.Group("/api", rl.Middleware())
	api.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/:code", rl.ResolveMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": c.Param("code")})
	})

	// Исчерпываем API-бюджет
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/test", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/test", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// Резолв с того же IP по-прежнему проходит
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/abc12345", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func actorTestRouter() *gin.Engine {
	ar := middleware.NewActorResolver(middleware.ActorConfig{
		UserKeys:  map[string]string{"user-key-1": "user-1"},
		AdminKeys: map[string]string{"admin-key-1": "admin-1"},
	})

	router := gin.New()
	router.Use(ar.Middleware())
	router.GET("/test", func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	return router
}

// TestActorResolver_Middleware проверяет аутентификацию и резолв актора
func TestActorResolver_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := actorTestRouter()

	// Запрос без API ключа должен быть отклонён
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Запрос с невалидным API ключом должен быть отклонён
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-API-Key", "invalid-key")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Пользовательский ключ резолвится в актора с ролью user
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-API-Key", "user-key-1")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"user-1"`)
	assert.Contains(t, w.Body.String(), `"role":"user"`)

	// Админский ключ резолвится в актора с ролью admin
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-API-Key", "admin-key-1")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

// TestActorResolver_QueryParam проверяет передачу API ключа через query параметр
func TestActorResolver_QueryParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := actorTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test?api_key=user-key-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestActorResolver_BearerToken проверяет передачу API ключа через Bearer токен
func TestActorResolver_BearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := actorTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer user-key-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRequireAdmin проверяет, что админский guard отсекает обычных акторов
func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ar := middleware.NewActorResolver(middleware.ActorConfig{
		UserKeys:  map[string]string{"user-key-1": "user-1"},
		AdminKeys: map[string]string{"admin-key-1": "admin-1"},
	})

	router := gin.New()
	router.Use(ar.Middleware())
	admin := router.Group("/admin", middleware.RequireAdmin())
	admin.GET("/test", func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		assert.Equal(t, models.RoleAdmin, actor.Role)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Обычный пользователь получает 403
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/test", nil)
	req.Header.Set("X-API-Key", "user-key-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Админ проходит
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/admin/test", nil)
	req.Header.Set("X-API-Key", "admin-key-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
