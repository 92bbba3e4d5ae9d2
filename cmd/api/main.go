package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/melo-app/melo-api/api/swagger"
	"github.com/melo-app/melo-api/internal/handler"
	"github.com/melo-app/melo-api/internal/middleware"
	"github.com/melo-app/melo-api/internal/repository"
	"github.com/melo-app/melo-api/internal/service"
	"github.com/melo-app/melo-api/pkg/cache"
	"github.com/melo-app/melo-api/pkg/config"
	"github.com/melo-app/melo-api/pkg/database"
	"github.com/melo-app/melo-api/pkg/jobs"
	"github.com/melo-app/melo-api/pkg/logger"
	corsmiddleware "github.com/melo-app/melo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/melo-app/melo-api/pkg/middleware/requestid"
	"github.com/melo-app/melo-api/pkg/storage"
)

// @title Melo API
// @version 1.0.0
// @description Gig-work marketplace backend: work lifecycle, applications, completion handshake and ratings
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()

	metricsSvc := (*service.MetricsService)(nil)
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.WorkTTL, logr, true)
		}
	}

	userRepo := repository.NewUserRepository(db)
	workRepo := repository.NewWorkRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	codeRepo := repository.NewCompletionCodeRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	workSvc := service.NewWorkService(workRepo, appRepo, userRepo, codeRepo, cacheSvc, validate, logr)
	appSvc := service.NewApplicationService(appRepo, workRepo, validate, logr)
	completionSvc := service.NewCompletionService(codeRepo, workRepo, cacheSvc, logr)
	reviewSvc := service.NewReviewService(reviewRepo, workRepo, userRepo, cacheSvc, validate, logr)

	var ratingQueue *jobs.Queue
	if cfg.Ratings.AsyncRecompute {
		ratingQueue = jobs.NewQueue("rating-recompute", func(ctx context.Context, job jobs.Job) error {
			userID, ok := job.Payload.(string)
			if !ok {
				return fmt.Errorf("unexpected payload type %T", job.Payload)
			}
			start := time.Now()
			err := reviewSvc.Recompute(ctx, userID)
			metricsSvc.ObserveJob("rating_recompute", time.Since(start))
			return err
		}, jobs.QueueConfig{
			Workers:    cfg.Ratings.WorkerConcurrency,
			MaxRetries: cfg.Ratings.WorkerRetries,
			Logger:     logr,
		})
		ratingQueue.Start(ctx)
		defer ratingQueue.Stop()

		reviewSvc.WithScheduler(func(userID string) error {
			return ratingQueue.Enqueue(jobs.Job{Type: "rating-recompute", Payload: userID})
		})
	}

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(workRepo, reviewRepo, reportStore, signer, service.ReportConfig{
			Enabled:   true,
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr)
		reportSvc.StartCleanup(ctx, time.Hour)
	} else {
		reportSvc = service.NewReportService(nil, nil, nil, nil, service.ReportConfig{}, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Work:        handler.NewWorkHandler(workSvc),
		Application: handler.NewApplicationHandler(appSvc),
		Completion:  handler.NewCompletionHandler(completionSvc),
		Review:      handler.NewReviewHandler(reviewSvc),
		Report:      handler.NewReportHandler(reportSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, cfg.Metrics.Enabled)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
