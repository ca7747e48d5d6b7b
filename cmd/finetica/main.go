package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finetica/internal/api"
	"finetica/internal/api/handlers"
	"finetica/internal/ingestion"
	"finetica/internal/lock"
	"finetica/internal/repository"
	"finetica/internal/service"
	"finetica/internal/storage"
	"finetica/pkg/auth"
	"finetica/pkg/config"
	"finetica/pkg/logger"
	"finetica/pkg/postgres"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title Finetica API
// @version 1.0
// @description Financial document ingestion and approval

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting Finetica service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		appLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	store, err := storage.New(&cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		appLogger.Fatal("Failed to prepare buckets", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	locker := lock.New(ctx, redisClient, cfg.Redis.LockTTL, appLogger)

	// Repositories
	docRepo := repository.NewDocumentRepository(db, appLogger)
	logRepo := repository.NewIngestionLogRepository(db, appLogger)

	// Ingestion
	var extractor ingestion.FieldExtractor = ingestion.NoopExtractor{}
	if cfg.Ingestion.Extractor == "gigachat" {
		gigaChat, err := ingestion.NewGigaChatExtractor(ctx, &cfg.GigaChat, appLogger)
		if err != nil {
			appLogger.Warn("GigaChat extractor unavailable, uploads will wait for manual entry", zap.Error(err))
		} else {
			defer gigaChat.Close()
			extractor = gigaChat
		}
	}

	processor := ingestion.NewProcessor(logRepo, store, ingestion.NewFitzReader(appLogger), extractor, ingestion.Options{
		Workers:         cfg.Ingestion.Workers,
		QueueSize:       cfg.Ingestion.QueueSize,
		RequeueInterval: cfg.Ingestion.RequeueInterval,
	}, appLogger)
	processor.Start(ctx)
	if err := processor.Requeue(ctx); err != nil {
		appLogger.Error("Failed to requeue unprocessed uploads", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	// Services
	docService := service.NewDocumentService(docRepo, store, locker, appLogger)
	uploadService := service.NewUploadService(store, logRepo, processor, cfg.Ingestion.MaxUploadBytes, appLogger)
	logService := service.NewIngestionLogService(logRepo, appLogger)

	// Handlers
	docHandler := handlers.NewDocumentHandler(docService, appLogger)
	ingestionHandler := handlers.NewIngestionHandler(logService, uploadService, appLogger)

	routerCfg := api.RouterConfig{
		BodyLimit:        cfg.Server.BodyLimit,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		UploadsPerMinute: cfg.Server.UploadsPerMinute,
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		routerCfg.FilesDir = local.Dir()
	}

	app := api.SetupRouter(routerCfg, docHandler, ingestionHandler, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	processor.Stop()
	cancel()
}
