package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// ActorConfig конфигурация аутентификации по API ключу.
// Ключ определяет и идентичность, и роль актора.
type ActorConfig struct {
	// UserKeys API key -> имя обычного пользователя
	UserKeys map[string]string
	// AdminKeys API key -> имя админа
	AdminKeys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-API-Key)
	HeaderName string
}

// ActorResolver middleware, превращающий API ключ в models.Actor.
// Дальше по стеку актор передаётся явно в операции жизненного цикла.
type ActorResolver struct {
	config ActorConfig
}

// NewActorResolver создаёт новый actor middleware
func NewActorResolver(config ActorConfig) *ActorResolver {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	return &ActorResolver{config: config}
}

// Middleware возвращает Gin middleware handler, требующий валидный API ключ
func (ar *ActorResolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(ar.config.HeaderName)

		// Также проверяем query параметр как запасной вариант
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		// Также проверяем заголовок Authorization с Bearer схемой
		if apiKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "Требуется API ключ. Передайте его через заголовок X-API-Key, query параметр api_key или Authorization: Bearer",
			})
			c.Abort()
			return
		}

		// Валидация API ключа с использованием constant-time comparison
		actor, ok := ar.resolve(apiKey)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Невалидный API ключ",
			})
			c.Abort()
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// resolve ищет ключ сначала среди админских, затем среди пользовательских
func (ar *ActorResolver) resolve(apiKey string) (models.Actor, bool) {
	for validKey, name := range ar.config.AdminKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			return models.Actor{ID: name, Role: models.RoleAdmin}, true
		}
	}
	for validKey, name := range ar.config.UserKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			return models.Actor{ID: name, Role: models.RoleUser}, true
		}
	}
	return models.Actor{}, false
}

// RequireAdmin middleware, пропускающий только акторов с админской ролью.
// Вешается после ActorResolver.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok || !actor.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "admin_required",
				"message": "Операция доступна только админам",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetActor извлекает актора из контекста запроса
func GetActor(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
