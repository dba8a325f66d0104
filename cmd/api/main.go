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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-pdf-watermark/internal/auth"
	"github.com/petermazzocco/go-pdf-watermark/internal/config"
	"github.com/petermazzocco/go-pdf-watermark/internal/handlers"
	"github.com/petermazzocco/go-pdf-watermark/internal/logger"
	"github.com/petermazzocco/go-pdf-watermark/internal/services"
	"github.com/petermazzocco/go-pdf-watermark/internal/storage"
	"github.com/petermazzocco/go-pdf-watermark/internal/validator"
	"github.com/petermazzocco/go-pdf-watermark/internal/watermark"
	"github.com/petermazzocco/go-pdf-watermark/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		zlog.Fatal("Failed to auto migrate models", zap.Error(err))
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		zlog.Fatal("Failed to configure storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	// Revocation list and previews live in Redis when configured, in process otherwise.
	var revoker auth.TokenRevoker = auth.NewMemoryRevoker()
	var previews watermark.PreviewStore = watermark.NewMemoryPreviewStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
		revoker = auth.NewRedisRevoker(rdb)
		previews = watermark.NewRedisPreviewStore(rdb)
	} else {
		zlog.Warn("REDIS_ADDR not set, using in-memory session revocation and previews")
	}

	sessions, err := auth.NewSessions(cfg.Session.SecretKey, cfg.Session.TTL, revoker)
	if err != nil {
		zlog.Fatal("Failed to configure sessions", zap.Error(err))
	}

	// Session store shared by the cookie session and gothic
	cookieStore := auth.NewCookieStore(cfg.Session.SecretKey, int(cfg.Session.TTL.Seconds()), cfg.Session.CookieSecure)
	providers := auth.UseProviders(cfg.OAuth.GoogleKey, cfg.OAuth.GoogleSecret, cfg.OAuth.CallbackURL, cookieStore)
	zlog.Info("oauth providers", zap.Strings("providers", providers))

	v := validator.New()
	engine := watermark.NewEngine()
	renderer := watermark.NewRenderer(engine, cfg.Watermark.PreviewDPI, cfg.Watermark.PreviewMaxWidth)

	resources := services.NewResourceService(db, zlog)
	if cfg.ResourcesSeedFile != "" {
		if _, err := resources.SeedFromFile(ctx, cfg.ResourcesSeedFile); err != nil {
			zlog.Fatal("Failed to seed resources", zap.Error(err))
		}
	}

	router := handlers.NewRouter(handlers.Deps{
		DB:         db,
		Sessions:   sessions,
		Store:      cookieStore,
		Users:      services.NewUserService(db, sessions, auth.GothVerifier{}, v, zlog),
		Documents:  services.NewDocumentService(db, store, engine, zlog),
		Watermarks: services.NewWatermarkService(db, store, engine, renderer, previews, cfg.Watermark.PreviewTTL, zlog),
		Feedback:   services.NewFeedbackService(db, v, zlog),
		Resources:  resources,
		Log:        zlog,

		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zlog.Info("Starting API server", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "s3", "r2":
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.Bucket,
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			PublicURL:       cfg.PublicURL,
		})
	case "minio":
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.AccessKeyID, cfg.AccessKeySecret, cfg.Bucket, cfg.PublicURL, cfg.MinioUseSSL)
	case "local":
		return storage.NewLocalStore(cfg.LocalPath, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
	}
}
