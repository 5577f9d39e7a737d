// Package main provides the HTTP server for bookpack.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/bookpack/internal/api"
	"github.com/raphaelgruber/bookpack/internal/app"
	"github.com/raphaelgruber/bookpack/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	logger, cleanup := cfg.Logger("bookpack-server")
	defer cleanup()
	slog.SetDefault(logger)

	logger.Info("starting bookpack-server",
		"version", version,
		"port", cfg.ServerPort,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	ctx := context.Background()
	shutdownTracing, err := setupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	services, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create services", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(services.Books, services.Runner, services.Chat, services.Metrics, logger)
	router := api.NewRouter(handler, version)

	httpServer := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     otelhttp.NewHandler(router, "api"),
		ReadTimeout: 5 * time.Second,
		// Ingestion streams last as long as a run.
		WriteTimeout: cfg.IngestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("API docs available", "url", "http://localhost:"+cfg.ServerPort+"/docs")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("failed to flush traces", "error", err)
	}

	logger.Info("server stopped")
}

// setupTracing installs an OTLP gRPC trace exporter when an endpoint is
// configured. The exporter reads OTEL_EXPORTER_OTLP_* itself.
func setupTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("bookpack"),
				semconv.ServiceVersion(version),
			),
		),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return tp.Shutdown, nil
}
