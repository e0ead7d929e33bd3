package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/atempo-hq/workcal-api/api/swagger"
	"github.com/atempo-hq/workcal-api/internal/handler"
	"github.com/atempo-hq/workcal-api/internal/repository"
	"github.com/atempo-hq/workcal-api/internal/router"
	"github.com/atempo-hq/workcal-api/internal/service"
	"github.com/atempo-hq/workcal-api/pkg/cache"
	"github.com/atempo-hq/workcal-api/pkg/config"
	"github.com/atempo-hq/workcal-api/pkg/database"
	"github.com/atempo-hq/workcal-api/pkg/logger"
	"github.com/atempo-hq/workcal-api/pkg/storage"
)

// @title WorkCal API
// @version 1.0.0
// @description Employee calendar events, project staffing and meal voucher payroll
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, voucher cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	eventService := service.NewEventService(eventRepo, assignmentRepo, cacheRepo, validate, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, projectRepo, userRepo, validate, logr)
	projectService := service.NewProjectService(projectRepo, userRepo, validate, logr)
	reportStore, err := storage.NewReportStore(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init report store", zap.Error(err))
	}
	reportSigner := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	payrollService := service.NewPayrollService(userRepo, eventRepo, cacheRepo, metricsService, reportStore, reportSigner, cfg.Vouchers, cfg.Reports, logr)

	engine := router.New(router.Dependencies{
		Config:   cfg,
		Logger:   logr,
		Auth:     authService,
		Metrics:  metricsService,
		Users:    userRepo,
		Events:   handler.NewEventHandler(eventService),
		Projects: handler.NewProjectHandler(projectService),
		Payroll:  handler.NewPayrollHandler(payrollService),
		Accounts: handler.NewUserHandler(userService),
		Sessions: handler.NewAuthHandler(authService),
		Staffing: handler.NewAssignmentHandler(assignmentService),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := engine.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
