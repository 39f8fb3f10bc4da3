package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AntonStoeckl/persistence-go/config"
	"github.com/AntonStoeckl/persistence-go/database"
	"github.com/AntonStoeckl/persistence-go/example/todo"
	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/oteladapters"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

const (
	serviceName     = "todo-service"
	defaultPort     = "8000"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}))

	if err := run(logger); err != nil {
		logger.Error("todo service failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	options := []postgresengine.Option{postgresengine.WithContextualLogger(logger)}

	// Initialize observability (if an OTLP endpoint is configured)
	if endpoint := os.Getenv(config.EnvOTLPEndpoint); endpoint != "" {
		providers, err := config.NewObservabilityProviders(ctx, endpoint, serviceName)
		if err != nil {
			return err
		}
		defer func() {
			if err := providers.Shutdown(context.Background()); err != nil {
				logger.Warn("shutting down observability providers failed", "error", err.Error())
			}
		}()

		options = append(options,
			postgresengine.WithMetrics(oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(serviceName))),
			postgresengine.WithTracing(oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(serviceName))),
			postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger(serviceName)),
		)
		logger.Info("observability enabled", "endpoint", endpoint)
	}

	registry := persistence.NewRegistry()
	if err := todo.Register(registry); err != nil {
		return err
	}

	db, err := database.NewFromEnv(registry, options...)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing the database failed", "error", err.Error())
		}
	}()

	if err = todo.CreateSchema(ctx, db.Engine()); err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           todo.NewRouter(db.Sessions(), logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("todo service listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down todo service")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func logLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
