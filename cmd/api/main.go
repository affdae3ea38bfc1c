package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Man0dya/qrlink/internal/config"
	"github.com/Man0dya/qrlink/internal/handler"
	"github.com/Man0dya/qrlink/internal/middleware"
	"github.com/Man0dya/qrlink/internal/moderation"
	"github.com/Man0dya/qrlink/internal/repository"
	"github.com/Man0dya/qrlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	linkRepo := repository.NewLinkRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	clickRepo := repository.NewClickRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	domainRepo := repository.NewDomainRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)

	// Автоматическая модерация и аудит
	decider := moderation.NewDecider(cfg.Moderation.BlockedDomains)
	audit := service.NewAuditLogger(auditRepo, logger)

	// Geo-lookup: внешний сервис, если сконфигурирован, иначе заглушка
	var geo service.GeoResolver
	if cfg.Geo.BaseURL != "" {
		geo = service.NewHTTPGeoResolver(cfg.Geo.BaseURL, cfg.Geo.Timeout)
		logger.Info("Geo lookup enabled", zap.String("url", cfg.Geo.BaseURL))
	} else {
		geo = service.NewNoopGeoResolver()
	}

	// Инициализация процессора кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(clickRepo, geo, logger)
	clickProcessor.Start()
	defer clickProcessor.Stop()

	// Инициализация сервисов
	linkService := service.NewLinkService(linkRepo, variantRepo, domainRepo, cacheRepo, decider, audit, logger)
	lifecycle := service.NewLifecycleService(linkRepo, cacheRepo, audit, logger)
	selector := service.NewDestinationSelector(variantRepo, logger)
	resolver := service.NewResolver(linkRepo, domainRepo, cacheRepo, selector, clickProcessor, logger)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		ResolveRPS:        cfg.RateLimit.ResolveRPS,
		ResolveBurst:      cfg.RateLimit.ResolveBurst,
		CleanupInterval:   time.Minute,
	})

	var actorMiddleware gin.HandlerFunc
	if len(cfg.Auth.APIKeys) > 0 || len(cfg.Auth.AdminAPIKeys) > 0 {
		resolverMw := middleware.NewActorResolver(middleware.ActorConfig{
			UserKeys:  cfg.Auth.APIKeys,
			AdminKeys: cfg.Auth.AdminAPIKeys,
		})
		actorMiddleware = resolverMw.Middleware()
		logger.Info("API key authentication enabled",
			zap.Int("keys_count", len(cfg.Auth.APIKeys)),
			zap.Int("admin_keys_count", len(cfg.Auth.AdminAPIKeys)),
		)
	}

	// Настройка роутера
	router := handler.NewRouter(linkService, lifecycle, resolver, clickProcessor, auditRepo, rateLimiter, actorMiddleware, logger)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
