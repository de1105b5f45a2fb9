// Package api exposes the planning service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/planner"
	"github.com/querydeck/querydeck/internal/schema"
)

type ReadinessCheck func(ctx context.Context) error

// NLPlanner is the planning surface the handlers call. Both entry
// points share one pipeline; only execution differs.
type NLPlanner interface {
	Plan(ctx context.Context, req planner.PlanRequest) (planner.Plan, error)
	Ask(ctx context.Context, req planner.AskRequest) (planner.AskResult, error)
}

type ResultArchiver interface {
	Archive(ctx context.Context, req export.Request) (export.Archive, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Planner           NLPlanner
	Schema            schema.Provider
	Archiver          ResultArchiver
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "not_ready", err.Error(), "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("POST /v1/plan", func(w http.ResponseWriter, r *http.Request) {
		handlePlan(deps, w, r)
	})
	protected.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	protected.HandleFunc("POST /v1/export", func(w http.ResponseWriter, r *http.Request) {
		handleExport(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "configuration", "auth middleware is required by configuration", "")
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/plan", protectedHandler)
	mux.Handle("POST /v1/ask", protectedHandler)
	mux.Handle("POST /v1/export", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckWarehouseDSN verifies the warehouse is configured at all; the
// pool's own ping covers actual connectivity at startup.
func CheckWarehouseDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Warehouse.DSN == "" && cfg.Warehouse.Driver != "duckdb" {
			return errors.New("warehouse dsn is not configured")
		}
		return nil
	}
}

func CheckCompletionConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.APIKey == "" {
			return errors.New("completion service api key is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, kind, message, detail string) {
	body := map[string]any{
		"error":    kind,
		"message":  message,
		"trace_id": observability.TraceIDFromContext(ctx),
	}
	if detail != "" {
		body["detail"] = detail
	}
	writeJSON(w, status, body)
}

// writePlannerError maps the pipeline error taxonomy onto transport
// statuses: caller faults 400, configuration and parse faults 500,
// upstream transport 502.
func writePlannerError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var plannerErr *planner.Error
	if !errors.As(err, &plannerErr) {
		if logger != nil {
			logger.ErrorContext(ctx, "unclassified request failure", slog.String("error", err.Error()))
		}
		writeError(ctx, w, http.StatusInternalServerError, "internal", "request failed", "")
		return
	}

	status := http.StatusInternalServerError
	switch plannerErr.Kind {
	case planner.KindInput, planner.KindUnsafeQuery, planner.KindExecution:
		status = http.StatusBadRequest
	case planner.KindUpstream:
		status = http.StatusBadGateway
	case planner.KindConfiguration, planner.KindPlanParse:
		status = http.StatusInternalServerError
	}

	if logger != nil && status >= 500 {
		logger.ErrorContext(ctx, "planning request failed",
			slog.String("kind", string(plannerErr.Kind)),
			slog.String("detail", plannerErr.Detail),
		)
	}
	writeError(ctx, w, status, string(plannerErr.Kind), plannerErr.Message, plannerErr.Detail)
}
