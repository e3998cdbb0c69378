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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-clubs-api/api/swagger"
	"github.com/noah-isme/student-clubs-api/internal/handler"
	"github.com/noah-isme/student-clubs-api/internal/middleware"
	"github.com/noah-isme/student-clubs-api/internal/models"
	"github.com/noah-isme/student-clubs-api/internal/repository"
	"github.com/noah-isme/student-clubs-api/internal/router"
	"github.com/noah-isme/student-clubs-api/internal/service"
	"github.com/noah-isme/student-clubs-api/pkg/cache"
	"github.com/noah-isme/student-clubs-api/pkg/config"
	"github.com/noah-isme/student-clubs-api/pkg/database"
	"github.com/noah-isme/student-clubs-api/pkg/jobs"
	"github.com/noah-isme/student-clubs-api/pkg/logger"
	reqidmiddleware "github.com/noah-isme/student-clubs-api/pkg/middleware/requestid"
	"github.com/noah-isme/student-clubs-api/pkg/storage"
)

// @title Student Clubs API
// @version 1.0.0
// @description Clubs, events, polls, academics and reporting for a student community.
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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		redisRepo := repository.NewCacheRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Engagement.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	clubRepo := repository.NewClubRepository(db)
	postRepo := repository.NewPostRepository(db)
	eventRepo := repository.NewEventRepository(db)
	pollRepo := repository.NewPollRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	termRepo := repository.NewTermRepository(db)
	markRepo := repository.NewMarkRepository(db)
	gpaRepo := repository.NewGpaRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	reportRepo := repository.NewReportRepository(db)

	configSvc := service.NewConfigurationService(configRepo, userRepo, validate, logr, models.SiteSettings{
		SiteName:          cfg.Settings.SiteName,
		AllowRegistration: cfg.Settings.AllowRegistration,
	})
	authSvc := service.NewAuthService(userRepo, configSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "student-clubs-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	engagementSvc := service.NewEngagementService(engagementRepo, cacheSvc, cfg.Engagement.CacheTTL, logr)
	clubSvc := service.NewClubService(clubRepo, postRepo, engagementSvc, validate, logr)
	eventSvc := service.NewEventService(eventRepo, clubRepo, engagementSvc, validate, logr)
	pollSvc := service.NewPollService(pollRepo, clubRepo, engagementSvc, metricsSvc, validate, logr)

	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	gpaSvc := service.NewGpaService(gpaRepo, userRepo, cacheSvc, metricsSvc, logr)
	markSvc := service.NewMarkService(service.MarkServiceDeps{
		Marks:     markRepo,
		Tx:        database.NewTxRunner(db),
		Courses:   courseRepo,
		Terms:     termRepo,
		Users:     userRepo,
		Audit:     userRepo,
		Hook:      gpaSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	pointsSvc := service.NewPointsService(pointsRepo, userRepo, clubRepo, userRepo, cacheSvc, validate, logr)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Clubs:  clubRepo,
		Events: eventRepo,
		Polls:  pollRepo,
		Points: pointsRepo,
		Gpa:    gpaSvc,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage unavailable", "dir", cfg.Reports.StorageDir, "error", err)
	}
	var remote service.RemoteStorage
	if cfg.Cloud.Enabled {
		remote = storage.NewSupabaseStorage(cfg.Cloud.URL, cfg.Cloud.APIKey, cfg.Cloud.Timeout)
	}
	exportSvc := service.NewExportService(service.ExportSources{
		Activity:   engagementRepo,
		Clubs:      clubRepo,
		Events:     eventRepo,
		Polls:      pollRepo,
		Posts:      postRepo,
		Marks:      markRepo,
		Engagement: engagementSvc,
	}, files, remote, storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL), metricsSvc, service.ExportConfig{
		APIPrefix:     cfg.APIPrefix,
		ResultTTL:     cfg.Reports.SignedURLTTL,
		ReportsBucket: cfg.Cloud.ReportsBucket,
		StudentBucket: cfg.Cloud.StudentBucket,
	}, logr)

	worker := service.NewReportWorker(reportRepo, exportSvc, metricsSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnFinish: func(job jobs.Job, err error) {
			if err != nil {
				logr.Warn("report job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
				return
			}
			logr.Info("report job finished", zap.String("job_id", job.ID))
		},
	})
	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.RetentionPeriod,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})

	handlers := router.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Clubs:         handler.NewClubHandler(clubSvc),
		Events:        handler.NewEventHandler(eventSvc),
		Polls:         handler.NewPollHandler(pollSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Terms:         handler.NewTermHandler(termSvc),
		Marks:         handler.NewMarkHandler(markSvc, gpaSvc),
		Points:        handler.NewPointsHandler(pointsSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Configuration: handler.NewConfigurationHandler(configSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc, db),
	}
	if cfg.Reports.Enabled {
		handlers.Reports = handler.NewReportHandler(reportSvc, exportSvc, engagementSvc)
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health"))

	router.Register(r, handlers, router.Options{
		APIPrefix:   cfg.APIPrefix,
		EnableDocs:  cfg.Env != config.EnvProduction,
		Auth:        authSvc,
		AuditLogger: userRepo,
	})

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
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", reqidmiddleware.HeaderKey},
		ExposeHeaders:    []string{reqidmiddleware.HeaderKey, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
