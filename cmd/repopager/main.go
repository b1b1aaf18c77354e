package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryanbastic/go-repopager/internal/api"
	"github.com/ryanbastic/go-repopager/internal/cache"
	"github.com/ryanbastic/go-repopager/internal/config"
	"github.com/ryanbastic/go-repopager/internal/github"
	"github.com/ryanbastic/go-repopager/internal/metrics"
	"github.com/ryanbastic/go-repopager/internal/reposearch"
	"github.com/ryanbastic/go-repopager/internal/session"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

func main() {
	cfg := config.Load()

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	backends := map[string]api.Pinger{"store": store}

	client, err := github.NewClient(github.Config{
		BaseURL:      cfg.GitHubBaseURL,
		Token:        cfg.GitHubToken,
		Timeout:      cfg.GitHubTimeout,
		MaxFailures:  cfg.BreakerMaxFailures,
		ResetTimeout: cfg.BreakerResetTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create GitHub client", "error", err)
		os.Exit(1)
	}
	var searcher github.Searcher = client

	// Optional search cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		searcher = cache.NewSearchCache(rc, searcher, cfg.SearchCacheTTL, logger)
		backends["redis"] = rc
		logger.Info("search cache enabled", "ttl", cfg.SearchCacheTTL)
	}

	repository := reposearch.NewRepository(store, searcher, cfg.PageSize, logger)
	sessions := session.NewManager(repository, logger)
	defer sessions.Close()

	// Start HTTP server
	handler := api.NewServer(logger, sessions, store, backends)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port, "store", cfg.StoreBackend, "page_size", cfg.PageSize)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	// Cancel in-flight searches before draining HTTP
	sessions.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("connected to database")

		if err := storage.RunMigrationsForPool(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("migrations complete")

		prometheus.MustRegister(metrics.NewPoolCollector("store", pool))
		return storage.NewPostgresStore(pool, cfg.QueryTimeout), pool.Close, nil

	case config.BackendMemory:
		return storage.NewMemoryStore(), func() {}, nil

	default:
		s, err := storage.OpenSQLite(ctx, cfg.SQLitePath, cfg.QueryTimeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opened sqlite store", "path", cfg.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("failed to close sqlite store", "error", err)
			}
		}, nil
	}
}
