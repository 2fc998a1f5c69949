// Command sheetvaultd runs the workbook version control service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/api"
	"github.com/sheetvault/sheetvault/internal/cache"
	"github.com/sheetvault/sheetvault/internal/config"
	"github.com/sheetvault/sheetvault/internal/db"
	"github.com/sheetvault/sheetvault/internal/db/migrations"
	"github.com/sheetvault/sheetvault/internal/dbpool"
	"github.com/sheetvault/sheetvault/internal/service"
	"github.com/sheetvault/sheetvault/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("sheetvaultd exited")
	}
}

func run(log *logrus.Logger) error {
	_ = godotenv.Load() // best-effort; env vars win over .env

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	versionCache, err := buildCache(ctx, cfg, log)
	if err != nil {
		return err
	}

	versions := service.NewVersionService(
		store.NewVersionStore(store.Base{Pool: pool, Log: log}),
		versionCache,
		log,
	)

	router := api.NewRouter(api.RouterDeps{
		Versions:    versions,
		DB:          pool,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithField("addr", cfg.Addr()).Info("sheetvaultd listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildCache selects the cache backend from configuration. Cache
// failures never fail requests, but an unreachable Redis at startup is
// a configuration error worth failing fast on.
func buildCache(ctx context.Context, cfg *config.Config, log *logrus.Logger) (cache.VersionCache, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, err
		}

		return cache.NewRedis(client, cfg.CacheTTL, log), nil
	case config.CacheBackendNone:
		log.Warn("version cache disabled")

		return cache.Nop{}, nil
	default:
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL), nil
	}
}
