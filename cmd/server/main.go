/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the transfer ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, apply flag overrides
  2. Initialize the selected store (sqlite, postgres or memory)
  3. Run migrations (postgres only; sqlite auto-migrates)
  4. Create engine, handler, metrics and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  PORT, STORE, SQLITE_PATH, DATABASE_URL, PGHOST, PGPORT, PGUSER,
  PGPASSWORD, PGDATABASE, CORS_ALLOWED_ORIGINS

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with a file database
  ./server -db="./data/transfers.db"

  # Run against PostgreSQL
  STORE=postgres DATABASE_URL=postgres://... ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/: Store implementations
*/
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

	"github.com/google/uuid"

	"github.com/pitchside/transfer-engine/api"
	"github.com/pitchside/transfer-engine/store/memory"
	"github.com/pitchside/transfer-engine/store/postgres"
	"github.com/pitchside/transfer-engine/store/sqlite"
	"github.com/pitchside/transfer-engine/transfer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flag overrides for local runs
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()

	store, closeStore, err := openStore(cfg, *dbPath, logger)
	if err != nil {
		logger.Error("failed to initialize store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	engine := transfer.NewEngine(store, transfer.WithWriteListener(func(playerID uuid.UUID) {
		logger.Debug("ledger write committed", "player_id", playerID.String())
	}))

	metrics := api.NewMetrics()
	handler := api.NewHandler(engine)
	handler.Metrics = metrics
	router := api.NewRouter(handler, metrics, cfg.Origins())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openStore builds the configured TxStore and its close function.
func openStore(cfg *Config, sqlitePath string, logger *slog.Logger) (transfer.TxStore, func(), error) {
	switch cfg.Store {
	case "sqlite":
		s, err := sqlite.New(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "postgres":
		if err := postgres.Migrate(cfg.DSN(), logger); err != nil {
			return nil, nil, err
		}
		s, err := postgres.New(context.Background(), cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "memory":
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want sqlite, postgres or memory)", cfg.Store)
	}
}
