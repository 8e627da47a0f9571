package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edumeet/api/swagger"
	"github.com/noah-isme/edumeet/internal/classroom"
	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/handler"
	"github.com/noah-isme/edumeet/internal/identity"
	internalmiddleware "github.com/noah-isme/edumeet/internal/middleware"
	"github.com/noah-isme/edumeet/internal/repository"
	"github.com/noah-isme/edumeet/internal/service"
	"github.com/noah-isme/edumeet/internal/workspace"
	"github.com/noah-isme/edumeet/pkg/backend"
	"github.com/noah-isme/edumeet/pkg/cache"
	"github.com/noah-isme/edumeet/pkg/config"
	"github.com/noah-isme/edumeet/pkg/database"
	"github.com/noah-isme/edumeet/pkg/jobs"
	"github.com/noah-isme/edumeet/pkg/logger"
	corsmiddleware "github.com/noah-isme/edumeet/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edumeet/pkg/middleware/requestid"
	"github.com/noah-isme/edumeet/pkg/storage"
)

// @title EduMeet API
// @version 1.0.0
// @description Session-scoped backend for the EduMeet online classroom
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const exportRetention = 24 * time.Hour

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Backend.Provider == config.BackendProviderPostgres {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Error("postgres unavailable, backend calls will fail", zap.Error(err))
		} else {
			defer db.Close()
			if err := database.EnsureSchema(ctx, db); err != nil {
				logr.Error("schema bootstrap failed", zap.Error(err))
			}
			checks["database"] = db.PingContext
		}
	}
	backendFactory := backend.NewFactory(backend.Options{
		Provider:  cfg.Backend.Provider,
		URL:       cfg.Backend.URL,
		AnonKey:   cfg.Backend.AnonKey,
		Timeout:   cfg.Backend.Timeout,
		DB:        db,
		JWTSecret: cfg.JWT.Secret,
		JWTExpiry: cfg.JWT.Expiration,
		Issuer:    cfg.JWT.Issuer,
		Observer:  metrics,
	}, logr)

	var redisClient *redis.Client
	if cfg.Dashboard.CacheEnabled || cfg.Identity.Driver == config.IdentityCacheRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	var dashboardCache *service.CacheService
	if redisClient != nil {
		dashboardCache = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	}

	identityCache := openIdentityCache(cfg, redisClient, logr)
	if closer, ok := identityCache.(interface{ Close() error }); ok {
		defer closer.Close() //nolint:errcheck
	}

	mux := jobs.NewMux()
	mux.Handle(service.JobDashboardLoad, service.HandleDashboardJob)
	queue := jobs.NewQueue("workspace", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Enabled {
		bus := events.NewBus(logr)
		if err := events.RunAudit(ctx, bus, metrics, logr); err != nil {
			logr.Warn("event audit not started", zap.Error(err))
		}
		publisher = bus
	}
	defer publisher.Close() //nolint:errcheck

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("exports storage unavailable", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	go runExportJanitor(ctx, files, logr)

	registry := workspace.NewRegistry(workspace.Deps{
		Backend:  backendFactory,
		Identity: identityCache,
		Queue:    queue,
		Events:   publisher,
		Metrics:  metrics,
		Cache:    dashboardCache,
		CacheTTL: cfg.Dashboard.CacheTTL,
		Storage:  files,
		Signer:   signer,
		Classroom: classroom.Config{
			ParticipantDelay: cfg.Classroom.ParticipantDelay,
			ChatReplyDelay:   cfg.Classroom.ChatReplyDelay,
		},
		MeetingBaseURL: cfg.Classroom.MeetingBaseURL,
		DownloadBase:   cfg.APIPrefix + "/exports",
		Logger:         logr,
	})
	defer registry.Close()
	go registry.RunSweeper(ctx, cfg.Sessions.SweepInterval, cfg.Sessions.IdleTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health"))

	handler.Register(r, cfg.APIPrefix, registry, handler.Handlers{
		Auth:        handler.NewAuthHandler(registry),
		Sections:    handler.NewSectionHandler(),
		Assignments: handler.NewAssignmentHandler(),
		Grades:      handler.NewGradeHandler(files, signer, logr),
		Classes:     handler.NewClassHandler(),
		Classroom:   handler.NewClassroomHandler(cfg.CORS.AllowedOrigins, logr),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
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
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openIdentityCache(cfg *config.Config, redisClient *redis.Client, logr *zap.Logger) identity.Cache {
	switch cfg.Identity.Driver {
	case config.IdentityCacheRedis:
		if redisClient == nil {
			logr.Warn("identity cache disabled, redis unavailable")
			return nil
		}
		return identity.NewRedisCache(redisClient, cfg.Identity.TTL)
	case config.IdentityCacheBolt:
		bolt, err := identity.OpenBolt(cfg.Identity.BoltPath, cfg.Identity.TTL)
		if err != nil {
			logr.Warn("identity cache disabled", zap.String("path", cfg.Identity.BoltPath), zap.Error(err))
			return nil
		}
		return bolt
	default:
		return nil
	}
}

func runExportJanitor(ctx context.Context, files *storage.LocalStorage, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := files.CleanupOlderThan(exportRetention)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("export cleanup", zap.Int("removed", len(removed)))
			}
		}
	}
}
