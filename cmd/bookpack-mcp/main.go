// Package main provides the entry point for the bookpack MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/bookpack/internal/app"
	"github.com/raphaelgruber/bookpack/internal/config"
	"github.com/raphaelgruber/bookpack/internal/server"
	"github.com/raphaelgruber/bookpack/internal/tools"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	// Stdout carries the protocol; logs go to stderr and the optional file.
	logger, cleanup := cfg.Logger("bookpack-mcp")
	defer cleanup()

	logger.Info("bookpack-mcp starting",
		"version", version,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	services, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create services", "error", err)
		os.Exit(1)
	}

	srv := server.New(version, logger)
	srv.Setup(server.DefaultSlowThreshold)

	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Books:  services.Books,
		Ingest: services.Runner,
		Chat:   services.Chat,
		Logger: logger,
	})

	logger.Info("server ready, awaiting connections")

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	// Let detached ingestion runs write their packs before exiting.
	services.Runner.Wait()
	logger.Info("shutdown complete")
}
