/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment, apply flag overrides
  2. Build the logger
  3. Open the configured store
  4. Create metrics, engine and API handler
  5. Start the low-stock monitor
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    Listen address (overrides APP_ADDR)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. STORE_DRIVER picks sqlite, postgres, redis or memory.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/stock.db"

  # Postgres, compare-and-swap stock writes
  STORE_DRIVER=postgres PG_DSN=postgres://... STOCK_WRITE_MODE=cas ./server

  # Redis (cas only)
  STORE_DRIVER=redis STOCK_WRITE_MODE=cas ./server

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/warp/stock-engine/api"
	"github.com/warp/stock-engine/config"
	"github.com/warp/stock-engine/inventory"
	memstore "github.com/warp/stock-engine/inventory/store"
	"github.com/warp/stock-engine/metrics"
	"github.com/warp/stock-engine/store/postgres"
	"github.com/warp/stock-engine/store/redisstore"
	"github.com/warp/stock-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags
	flag.StringVar(&cfg.AppAddr, "addr", cfg.AppAddr, "HTTP listen address")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()

	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Error("close store", "error", err)
			}
		}
	}()

	m := metrics.New()
	if s, ok := store.(*sqlite.Store); ok {
		m.Registerer().MustRegister(collectors.NewDBStatsCollector(s.DB(), "sqlite"))
	}
	opts := cfg.EngineOptions(logger)
	opts.Observer = m
	engine, err := inventory.NewEngine(store, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	handler := api.NewHandler(store, engine, cfg.Threshold(), logger)
	router := api.NewRouter(handler, cfg, m)

	monitor := api.NewLowStockMonitor(store, cfg.Threshold(), logger, m)
	monitor.CheckInterval = cfg.LowStockCheckInterval
	monitor.Start()
	defer monitor.Stop()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.AppAddr,
			"store", cfg.StoreDriver,
			"stock_write_mode", opts.StockWriteMode,
			"env", cfg.AppEnv,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore builds the backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (inventory.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.PGDSN)
	case config.DriverRedis:
		return redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	case config.DriverMemory:
		return memstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
