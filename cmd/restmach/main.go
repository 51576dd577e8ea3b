// Command restmach runs the demo document server. It loads
// configuration, opens the configured document store, builds the
// catalog endpoints, and serves them until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/restmach/restmach/internal/catalog"
	"github.com/restmach/restmach/internal/config"
	"github.com/restmach/restmach/internal/endpoint"
	"github.com/restmach/restmach/internal/safehttp"
	"github.com/restmach/restmach/internal/server"
	"github.com/restmach/restmach/internal/store"
	"github.com/restmach/restmach/internal/store/memory"
	"github.com/restmach/restmach/internal/store/mongo"
	"github.com/restmach/restmach/internal/store/sqlite"
	"github.com/restmach/restmach/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer("restmach", logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	srv := server.New(cfg.Server.Port, cfg.Server.Timeout(), logger)

	if err := mountCatalog(srv, cfg, st, logger); err != nil {
		log.Fatalf("Failed to build endpoints: %v", err)
	}

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Type {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLite.Path)
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongo.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func mountCatalog(srv *server.Server, cfg *config.Config, st store.Store, logger *slog.Logger) error {
	var shared []endpoint.Option
	if cfg.Server.TraceStages {
		shared = append(shared, endpoint.WithTrace(endpoint.ConsoleTrace()))
	}
	if cfg.Server.DebugHeader != "" {
		shared = append(shared, endpoint.WithDebugHeader(cfg.Server.DebugHeader))
	}
	if cfg.Server.AllowOrigin != "" {
		shared = append(shared, endpoint.WithAllowOrigin(cfg.Server.AllowOrigin))
	}

	greeting, err := catalog.Greeting(cfg.Greeting.Message, logger, shared...)
	if err != nil {
		return err
	}
	srv.Mount("/greeting", greeting)

	counter, err := catalog.Counter(logger, shared...)
	if err != nil {
		return err
	}
	srv.Mount("/counter", counter)

	index, err := catalog.DocumentIndex(st, logger, shared...)
	if err != nil {
		return err
	}
	srv.Mount("/documents", index)

	docs, err := catalog.Documents(st, logger, shared...)
	if err != nil {
		return err
	}
	srv.Mount("/documents/{id}", docs)

	if cfg.Remote.Target != "" {
		remote, err := catalog.Remote(safehttp.Client(15*time.Second), cfg.Remote.Target, logger, shared...)
		if err != nil {
			return err
		}
		srv.Mount("/status", remote)
	}

	return nil
}
