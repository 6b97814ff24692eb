package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/exports"
	"fieldgate_backend/internal/gates"
	apphttp "fieldgate_backend/internal/http"
	"fieldgate_backend/internal/http/router"
	"fieldgate_backend/internal/review"
	"fieldgate_backend/internal/scheduler"
	"fieldgate_backend/migrations"
	"fieldgate_backend/platform/config"
	"fieldgate_backend/platform/db"
	"fieldgate_backend/platform/logger"
	"fieldgate_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		applied, err := db.RunMigrations(ctx, cfg, cfg.GetMigrationsDir(), migrations.FS)
		for _, m := range applied {
			log.Info("migration applied", "version", m.Version, "source", m.Source)
		}
		return err
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	notifier, closeScheduler := initReviewNotifier(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for gate photos (MinIO)
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	ensureBucket(ctx, log, storageSvc, "gate-photos", cfg.GetMinioBucketGatePhotos())
	log.Info("storage service initialized", "gatePhotosBucket", cfg.GetMinioBucketGatePhotos())

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	gatesModule := gates.NewModule(pool, eventBus, storageSvc, val, cfg, log)
	exportsModule := exports.NewModule(pool, cfg.GetExceptionReviewThreshold())
	modules := []apphttp.Module{gatesModule, exportsModule}
	health := []apphttp.HealthCheck{{Name: "database", Checker: db.NewPoolAdapter(pool)}}

	rdb, err := initRedis(cfg, log)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		reviewModule := review.NewModule(rdb, gatesModule.Service(), eventBus, notifier, log, cfg.GetReviewSweepInterval(), cfg.GetReviewReminderAfter())
		reviewModule.RegisterHandlers(eventBus)
		go reviewModule.Sweeper().Run(ctx)
		modules = append(modules, reviewModule)
		health = append(health, apphttp.HealthCheck{Name: "redis", Checker: redisPinger{rdb}})
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Modules:  modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReviewNotifier(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReviewNotifier, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; review notifications disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) (*redis.Client, error) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; review queue disabled")
		return nil, nil
	}
	opt, err := scheduler.ParseRedisURL(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
