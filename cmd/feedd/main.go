// Package main is the entry point for the feed ranking server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/feedrank/internal/api"
	"github.com/onnwee/feedrank/internal/config"
	"github.com/onnwee/feedrank/internal/db"
	"github.com/onnwee/feedrank/internal/feed"
	"github.com/onnwee/feedrank/internal/health"
	"github.com/onnwee/feedrank/internal/middleware"
	"github.com/onnwee/feedrank/internal/ranking"
	"github.com/onnwee/feedrank/internal/tracing"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Feedrank Server")
		fmt.Println()
		fmt.Println("Usage: feedd [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Ranking configuration: built-in defaults merged with the optional
	// calibration file. Invalid calibration is a startup failure.
	rankCfg, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		return fmt.Errorf("failed to load ranking calibration: %w", err)
	}

	// Tracing (optional).
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:    "feedrank",
		ServiceVersion: version,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporterType,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSamplingRate,
		InsecureMode:   !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Metrics registry shared by the ranking engine and HTTP middleware.
	registry := prometheus.NewRegistry()
	rankMetrics := ranking.NewMetrics()
	if err := rankMetrics.Register(registry); err != nil {
		return fmt.Errorf("failed to register ranking metrics: %w", err)
	}
	httpMetrics := middleware.NewHTTPMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	// Stores: PostgreSQL when configured, in-memory otherwise.
	var (
		content   feed.ContentStore
		profiles  feed.ProfileStore
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		store := feed.NewPostgresStore(conn, logger)
		content = store
		profiles = store
		dbChecker = health.NewDBChecker(conn)
		logger.Info("using postgres store")
	} else {
		store := feed.NewInMemoryStore()
		content = store
		profiles = store
		logger.Warn("no DATABASE_URL set, using in-memory store")
	}

	// Redis profile cache (optional).
	var (
		profileCache *feed.ProfileCache
		redisChecker api.HealthChecker
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		ttl := time.Duration(cfg.ProfileCacheTTLSecs) * time.Second
		profileCache = feed.NewProfileCache(client, ttl, logger)
		redisChecker = health.NewRedisChecker(client)
		logger.Info("profile cache enabled", "addr", cfg.RedisAddr, "ttl", ttl)
	}

	ranker := ranking.NewRanker(rankCfg, rankMetrics)

	feedHandlers := api.NewFeedHandlers(api.FeedHandlersConfig{
		Content:  content,
		Profiles: profiles,
		Cache:    profileCache,
		Ranker:   ranker,
		PoolSize: cfg.CandidatePoolSize,
		Logger:   logger,
	})
	explainHandlers := api.NewExplainHandlers(content, profiles, ranker, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/v1/feed/", httpMetrics.Middleware("/v1/feed/{viewerID}",
		http.HandlerFunc(feedHandlers.GetFeed)))
	mux.Handle("/v1/explain/", httpMetrics.Middleware("/v1/explain/{viewerID}/{itemID}",
		http.HandlerFunc(explainHandlers.GetExplanation)))

	// Apply middleware: RequestID -> Logging
	handler := middleware.RequestID(middleware.Logging(logger)(mux))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
