package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/upasthit/attendance-api/api/swagger"
	"github.com/upasthit/attendance-api/internal/handler"
	"github.com/upasthit/attendance-api/internal/repository"
	"github.com/upasthit/attendance-api/internal/service"
	"github.com/upasthit/attendance-api/internal/verify"
	"github.com/upasthit/attendance-api/pkg/cache"
	"github.com/upasthit/attendance-api/pkg/config"
	"github.com/upasthit/attendance-api/pkg/database"
	"github.com/upasthit/attendance-api/pkg/jobs"
	"github.com/upasthit/attendance-api/pkg/logger"
	corsmiddleware "github.com/upasthit/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/upasthit/attendance-api/pkg/middleware/requestid"
	"github.com/upasthit/attendance-api/pkg/storage"
)

// @title Upasthit Attendance API
// @version 1.0.0
// @description Organization attendance check-in with location verification and async reporting.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled)
	settingsSvc := service.NewSettingsService(orgRepo, cacheSvc, cfg.Attendance, logr)

	verifier := verify.NewClient(cfg.Verification, logr)
	gate := service.NewLocationGate(verifier, cfg.Attendance, metricsSvc, logr)

	admissionSvc := service.NewAdmissionService(service.AdmissionServiceParams{
		Sessions:   sessionRepo,
		Attendance: attendanceRepo,
		Users:      userRepo,
		Settings:   settingsSvc,
		Gate:       gate,
		Metrics:    metricsSvc,
		Logger:     logr,
		Config:     cfg.Attendance,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, nil, logr)
	sessionSvc := service.NewSessionService(sessionRepo, settingsSvc, cacheSvc, cfg.Attendance, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "upasthit",
		Audience:           []string{"upasthit-api"},
	})

	var reportHandler *handler.ReportHandler
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("report storage init failed", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(attendanceRepo, sessionRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)

		reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, userRepo, nil, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler = handler.NewReportHandler(reportSvc, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, handler.RouterParams{
		APIPrefix:      cfg.APIPrefix,
		Auth:           handler.NewAuthHandler(authSvc),
		CheckIn:        handler.NewCheckInHandler(admissionSvc),
		Attendance:     handler.NewAttendanceHandler(attendanceSvc),
		Sessions:       handler.NewSessionHandler(sessionSvc),
		Reports:        reportHandler,
		Metrics:        handler.NewMetricsHandler(metricsSvc, db, redisClient),
		AuthService:    authSvc,
		MetricsService: metricsSvc,
		Users:          userRepo,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
