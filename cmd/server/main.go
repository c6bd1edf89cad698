package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edukoala/api/swagger"
	"github.com/noah-isme/edukoala/internal/handler"
	"github.com/noah-isme/edukoala/internal/repository"
	"github.com/noah-isme/edukoala/internal/seed"
	"github.com/noah-isme/edukoala/internal/service"
	"github.com/noah-isme/edukoala/pkg/cache"
	"github.com/noah-isme/edukoala/pkg/config"
	"github.com/noah-isme/edukoala/pkg/database"
	"github.com/noah-isme/edukoala/pkg/logger"
)

// @title Edukoala API
// @version 1.0.0
// @description Course catalog and enrollment API
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Catalog.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("catalog cache disabled, redis unavailable", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	if _, err := seed.Catalog(ctx, courseRepo, cacheSvc, logr); err != nil {
		logr.Fatal("failed to seed catalog", zap.Error(err))
	}

	authSvc := service.NewAuthService(userRepo, sessionRepo, validator.New(), logr, metrics, service.AuthConfig{
		SessionSecret: cfg.Session.Secret,
		SessionTTL:    cfg.Session.TTL,
		BcryptCost:    cfg.Auth.BcryptCost,
	})
	catalogSvc := service.NewCatalogService(courseRepo, cacheSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, logr, metrics)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["cache"] = handler.PingFunc(cacheRepo.Ping)
	}

	r, err := handler.NewRouter(handler.RouterDeps{
		Auth:        authSvc,
		Catalog:     catalogSvc,
		Enrollments: enrollmentSvc,
		Metrics:     metrics,
		Cookie: handler.SessionCookie{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			TTL:    cfg.Session.TTL,
		},
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableMetrics:  cfg.Metrics.Enabled,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Checks:         checks,
		Logger:         logr,
	})
	if err != nil {
		logr.Fatal("failed to build router", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "db_driver", cfg.Database.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
