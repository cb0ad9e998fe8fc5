/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tenants hub server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Build the logger
  3. Initialize SQLite store
  4. Create metrics registry, change feed and optional Redis cache
  5. Create API handler, router and status sweeper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: configs/config.yaml, optional)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

ENVIRONMENT:
  Every config key can be set as an upper-case variable with underscores,
  e.g. SERVER_PORT, DATABASE_PATH, LOG_LEVEL, REDIS_ADDR. A .env file in the
  working directory is loaded first.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sweeper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close change feed subscribers, cache and database

  Startup failures return from run, so the same cleanup runs before exit.

EXAMPLES:
  # Run with file database
  ./server -db="./data/tenants.db"

  # Run with in-memory database and a local Redis
  REDIS_ADDR=localhost:6379 ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - api/scheduler.go: Status sweeper
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/welile/tenants-hub/api"
	"github.com/welile/tenants-hub/cache"
	"github.com/welile/tenants-hub/config"
	"github.com/welile/tenants-hub/events"
	"github.com/welile/tenants-hub/metrics"
	"github.com/welile/tenants-hub/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", config.DefaultPath, "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := newLogger(cfg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// run returns before os.Exit so its deferred closes always happen.
	if err := run(cfg, logger, quit); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

// run wires the service and serves until stop fires or the listener fails.
func run(cfg *config.Config, logger *logrus.Logger, stop <-chan os.Signal) error {
	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Optional cache
	summaryCache, err := cache.New(context.Background(), cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, running without summary cache")
	} else if summaryCache != nil {
		logger.WithField("addr", cfg.Redis.Addr).Info("summary cache enabled")
	}
	defer func() {
		if err := summaryCache.Close(); err != nil {
			logger.WithError(err).Warn("failed to close cache")
		}
	}()

	// Initialize handler
	handler := api.NewHandler(store, store, logger)
	handler.Metrics = m
	handler.Cache = summaryCache
	handler.ServiceCenter = cfg.ServiceCenter
	handler.Hub.OnDrop = func(events.Event) { m.ObserveDrop() }
	defer handler.Hub.Close()

	sweeper := api.NewStatusSweeper(handler, store)
	sweeper.Enabled = cfg.Scheduler.Enabled
	sweeper.Spec = cfg.Scheduler.Spec
	handler.Sweeper = sweeper
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start status sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.CorsAllowedOrigins,
		Gatherer:       registry,
	})

	// Create server. No write timeout: the change feed holds websockets open.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"database": cfg.Database.Path,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a failed listener
	select {
	case <-stop:
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("shutting down server")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handler.Hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
