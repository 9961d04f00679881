package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/config"
	"github.com/cmscrm/api/internal/database"
	"github.com/cmscrm/api/internal/events"
	"github.com/cmscrm/api/internal/handler"
	"github.com/cmscrm/api/internal/middleware"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/observability"
	"github.com/cmscrm/api/internal/repository"
	"github.com/cmscrm/api/internal/router"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Page{}, &models.User{}, &models.Role{}, &models.ActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectStatsCache(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := observability.NewMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	pageRepo := repository.NewPageRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	iconStore := storage.NewLocalStore(cfg.UploadDir, "/uploads/icons", logger)
	hub := events.NewHub(logger)

	activityService := service.NewActivityService(activityRepo, metrics, logger)
	pageService := service.NewPageService(pageRepo, iconStore, activityService, hub, validate, redisClient, cfg.StatsCacheTTL, metrics, logger)
	userService := service.NewUserService(userRepo, roleRepo, activityService, hub, validate, logger)
	roleService := service.NewRoleService(roleRepo, pageRepo, activityService, hub, validate, logger)
	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)

	menuService, err := service.NewMenuService(service.DefaultMenu(), service.DefaultExcludedPages(), pageRepo, logger)
	if err != nil {
		log.Fatalf("invalid menu configuration: %v", err)
	}

	dev := cfg.IsDevelopment()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.MaxUploadSize) + 1<<20,
	})

	middleware.Register(app, middleware.Config{
		Logger:          &logger,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, logger, dev),
		PageHandler:     handler.NewPageHandler(pageService, logger, dev),
		UserHandler:     handler.NewUserHandler(userService, logger, dev),
		RoleHandler:     handler.NewRoleHandler(roleService, logger, dev),
		ActivityHandler: handler.NewActivityHandler(activityService, logger, dev),
		MenuHandler:     handler.NewMenuHandler(menuService, logger, dev),
		HealthHandler:   handler.NewHealthHandler(cfg.AppName, cfg.AppEnv),
		Metrics:         metrics,
		Hub:             hub,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("api server started")

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
