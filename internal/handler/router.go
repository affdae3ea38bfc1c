package handler

import (
	"net/http"

	"github.com/Man0dya/qrlink/internal/middleware"
	"github.com/Man0dya/qrlink/internal/repository"
	"github.com/Man0dya/qrlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	linkService service.LinkService,
	lifecycle service.LifecycleService,
	resolver service.Resolver,
	clickProcessor service.ClickProcessor,
	auditRepo repository.AuditRepository,
	rateLimiter *middleware.RateLimiter,
	actorMiddleware gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.Default()

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	linkHandler := NewLinkHandler(linkService, lifecycle, clickProcessor, logger)
	resolveHandler := NewResolveHandler(resolver, logger)
	adminHandler := NewAdminHandler(lifecycle, auditRepo, logger)

	// API v.1 с собственным rate limit бюджетом
	v1 := router.Group("/api/v1", rateLimiter.Middleware())
	{
		v1.GET("/health", HealthCheck)

		// Применяем actor middleware только к защищенным эндпоинтам
		if actorMiddleware != nil {
			v1.Use(actorMiddleware)
		}

		v1.POST("/links", linkHandler.CreateLink)
		v1.GET("/links/:code", linkHandler.GetLink)
		v1.PUT("/links/:code", linkHandler.UpdateLink)
		v1.DELETE("/links/:code", linkHandler.DeleteLink)
		v1.POST("/links/:code/appeal", linkHandler.RequestApproval)
		v1.POST("/links/:code/variants", linkHandler.AddVariant)
		v1.GET("/links/:code/stats", linkHandler.GetStats)
		v1.GET("/links/:code/stats/daily", linkHandler.GetDailyStats)

		// Админские операции: actor должен иметь админскую роль
		admin := v1.Group("/admin", middleware.RequireAdmin())
		{
			admin.POST("/links/:code/moderate", adminHandler.Moderate)
			admin.GET("/links/:code/audit", adminHandler.AuditTrail)
		}
	}

	// Резолв (корневой путь) - без API key проверки, с отдельным
	// rate limit бюджетом: исчерпанный API-лимит не должен ломать сканирование
	router.GET("/:code", rateLimiter.ResolveMiddleware(), resolveHandler.Resolve)

	return router
}

// HealthCheck простой liveness-эндпоинт
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
