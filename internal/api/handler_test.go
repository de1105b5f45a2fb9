package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/querydeck/querydeck/internal/auth"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/planner"
	"github.com/querydeck/querydeck/internal/schema"
)

type fakePlanner struct {
	plan    planner.Plan
	ask     planner.AskResult
	planErr error
	askErr  error
}

func (f *fakePlanner) Plan(context.Context, planner.PlanRequest) (planner.Plan, error) {
	return f.plan, f.planErr
}

func (f *fakePlanner) Ask(context.Context, planner.AskRequest) (planner.AskResult, error) {
	return f.ask, f.askErr
}

type fakeSchemaProvider struct {
	snapshot schema.Snapshot
	err      error
}

func (f *fakeSchemaProvider) Snapshot(context.Context) (schema.Snapshot, error) {
	return f.snapshot, f.err
}

type fakeArchiver struct {
	archive export.Archive
	err     error
	last    export.Request
}

func (f *fakeArchiver) Archive(_ context.Context, req export.Request) (export.Archive, error) {
	f.last = req
	return f.archive, f.err
}

func testConfig() config.Config {
	cfg, err := config.Load("querydeck-api", func(string) (string, bool) { return "", false })
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyEndpointFailure(t *testing.T) {
	deps := Dependencies{Readiness: func(context.Context) error { return errors.New("warehouse down") }}
	handler := NewHandler(testConfig(), deps)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPlanEndpoint(t *testing.T) {
	deps := Dependencies{Planner: &fakePlanner{plan: planner.Plan{
		Summary:   "monthly revenue",
		SQL:       "SELECT month, revenue FROM sales LIMIT 1000",
		ChartSpec: planner.ChartSpec{Type: "line", X: "month", Y: []string{"revenue"}},
	}}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader(`{"question": "revenue by month"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body planResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.SQL != "SELECT month, revenue FROM sales LIMIT 1000" {
		t.Fatalf("sql = %q", body.SQL)
	}
}

func TestPlanEndpointInvalidBody(t *testing.T) {
	deps := Dependencies{Planner: &fakePlanner{}}
	handler := NewHandler(testConfig(), deps)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		kind planner.Kind
		want int
	}{
		{planner.KindInput, http.StatusBadRequest},
		{planner.KindUnsafeQuery, http.StatusBadRequest},
		{planner.KindExecution, http.StatusBadRequest},
		{planner.KindUpstream, http.StatusBadGateway},
		{planner.KindConfiguration, http.StatusInternalServerError},
		{planner.KindPlanParse, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			deps := Dependencies{Planner: &fakePlanner{askErr: &planner.Error{Kind: tc.kind, Message: "failed"}}}
			handler := NewHandler(testConfig(), deps)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question": "q"}`))
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != string(tc.kind) {
				t.Fatalf("error = %v, want %q", body["error"], tc.kind)
			}
		})
	}
}

func TestAskEndpointNullAskBack(t *testing.T) {
	deps := Dependencies{Planner: &fakePlanner{ask: planner.AskResult{
		Explanation: "e",
		SQL:         "SELECT 1 LIMIT 1000",
		Fields:      []string{"one"},
		Rows:        []map[string]any{{"one": 1}},
	}}}
	handler := NewHandler(testConfig(), deps)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question": "q"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if value, present := body["askBack"]; !present || value != nil {
		t.Fatalf("askBack should be explicit null, got %v (present=%v)", value, present)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	deps := Dependencies{Schema: &fakeSchemaProvider{snapshot: schema.Snapshot{Tables: []schema.Table{
		{Name: "sales", Columns: []schema.Column{{Name: "region", Type: "varchar"}}},
	}}}}
	handler := NewHandler(testConfig(), deps)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sales(region)") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestExportEndpoint(t *testing.T) {
	archiver := &fakeArchiver{archive: export.Archive{Key: "exports/2026/09/01/abc", Rows: 1}}
	deps := Dependencies{
		Planner: &fakePlanner{ask: planner.AskResult{
			SQL:    "SELECT region FROM sales LIMIT 1000",
			Fields: []string{"region"},
			Rows:   []map[string]any{{"region": "west"}},
		}},
		Archiver: archiver,
	}
	handler := NewHandler(testConfig(), deps)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/export", strings.NewReader(`{"question": "q"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if archiver.last.SQL != "SELECT region FROM sales LIMIT 1000" {
		t.Fatalf("archived sql = %q", archiver.last.SQL)
	}
}

func TestExportEndpointDisabled(t *testing.T) {
	deps := Dependencies{Planner: &fakePlanner{}}
	handler := NewHandler(testConfig(), deps)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/export", strings.NewReader(`{"question": "q"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true

	validator, err := auth.NewStaticAPIKeyValidator("secret:alice:analyst|exporter")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	deps := Dependencies{
		Planner:        &fakePlanner{plan: planner.Plan{SQL: "SELECT 1 LIMIT 1000"}},
		AuthMiddleware: auth.Middleware(nil, validator),
	}
	handler := NewHandler(cfg, deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader(`{"question": "q"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key should be rejected, status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader(`{"question": "q"}`))
	req.Header.Set("X-API-Key", "secret")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key should pass, status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health should stay open, status = %d", rec.Code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true

	validator, err := auth.NewStaticAPIKeyValidator("viewer:bob:analyst")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	deps := Dependencies{
		Planner:        &fakePlanner{ask: planner.AskResult{Fields: []string{"a"}, Rows: []map[string]any{{"a": 1}}}},
		Archiver:       &fakeArchiver{},
		AuthMiddleware: auth.Middleware(nil, validator),
	}
	handler := NewHandler(cfg, deps)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/export", strings.NewReader(`{"question": "q"}`))
	req.Header.Set("X-API-Key", "viewer")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("analyst-only key must not export, status = %d", rec.Code)
	}
}
