package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querydeck/querydeck/internal/api"
	"github.com/querydeck/querydeck/internal/auth"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/planner"
	"github.com/querydeck/querydeck/internal/query"
	"github.com/querydeck/querydeck/internal/schema"
	s3store "github.com/querydeck/querydeck/internal/storage/s3"
	"github.com/querydeck/querydeck/internal/warehouse"
)

func main() {
	if err := run(); err != nil {
		slog.Error("querydeck-api failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv("querydeck-api")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	warehouseDB, err := warehouse.Open(context.Background(), cfg.Warehouse)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer func() { _ = warehouseDB.Close() }()

	schemaProvider := schema.NewCached(
		schema.NewIntrospector(warehouseDB, cfg.Warehouse.Namespace),
		cfg.Schema.CacheTTL,
		nil,
	)

	completions, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initialize completion client: %w", err)
	}

	nlPlanner := &planner.Planner{
		Schema:      schemaProvider,
		Completions: completions,
		Engine:      query.NewDBEngine(warehouseDB, cfg.Warehouse.QueryTimeout),
		Temperature: cfg.AI.Temperature,
		RowLimit:    cfg.Guard.RowLimit,
		Logger:      logger,
	}

	deps := api.Dependencies{
		Logger:  logger,
		Planner: nlPlanner,
		Schema:  schemaProvider,
		Readiness: api.CombineReadinessChecks(
			api.CheckWarehouseDSN(cfg),
			api.CheckCompletionConfig(cfg),
			func(ctx context.Context) error { return warehouseDB.PingContext(ctx) },
		),
		DependencyTimeout: time.Second,
	}

	if cfg.Export.Enabled {
		store, err := s3store.New(context.Background(), cfg.Export)
		if err != nil {
			return fmt.Errorf("initialize export store: %w", err)
		}
		deps.Archiver = export.NewArchiver(store)
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			return fmt.Errorf("parse static auth keys: %w", err)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
