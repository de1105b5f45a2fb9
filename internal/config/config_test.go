package config

import (
	"log/slog"
	"testing"
	"time"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("querydeck-api", lookupFrom(nil))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("profile = %q", cfg.Profile)
	}
	if cfg.Warehouse.Driver != "duckdb" {
		t.Fatalf("driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Guard.RowLimit != 1000 {
		t.Fatalf("row limit = %d", cfg.Guard.RowLimit)
	}
	if cfg.Schema.CacheTTL != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Schema.CacheTTL)
	}
	if cfg.AI.Timeout != 18*time.Second {
		t.Fatalf("ai timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Auth.Required {
		t.Fatal("auth should be optional in dev")
	}
}

func TestLoadProdProfile(t *testing.T) {
	cfg, err := Load("querydeck-api", lookupFrom(map[string]string{
		"QUERYDECK_PROFILE":       "prod",
		"QUERYDECK_WAREHOUSE_DSN": "postgres://warehouse/analytics",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Warehouse.Driver != "postgres" || cfg.Warehouse.Namespace != "public" {
		t.Fatalf("warehouse = %+v", cfg.Warehouse)
	}
	if !cfg.Auth.Required {
		t.Fatal("prod should require auth")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("log level = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load("querydeck-api", lookupFrom(map[string]string{
		"QUERYDECK_HTTP_ADDR":        ":9999",
		"QUERYDECK_GUARD_ROW_LIMIT":  "250",
		"QUERYDECK_SCHEMA_CACHE_TTL": "90s",
		"QUERYDECK_AI_TEMPERATURE":   "0.4",
		"QUERYDECK_EXPORT_ENABLED":   "true",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("addr = %q", cfg.HTTP.Address)
	}
	if cfg.Guard.RowLimit != 250 {
		t.Fatalf("row limit = %d", cfg.Guard.RowLimit)
	}
	if cfg.Schema.CacheTTL != 90*time.Second {
		t.Fatalf("cache ttl = %v", cfg.Schema.CacheTTL)
	}
	if cfg.AI.Temperature != 0.4 {
		t.Fatalf("temperature = %v", cfg.AI.Temperature)
	}
	if !cfg.Export.Enabled {
		t.Fatal("export should be enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad profile":   {"QUERYDECK_PROFILE": "staging"},
		"bad driver":    {"QUERYDECK_WAREHOUSE_DRIVER": "mysql"},
		"bad duration":  {"QUERYDECK_SCHEMA_CACHE_TTL": "soon"},
		"bad int":       {"QUERYDECK_GUARD_ROW_LIMIT": "many"},
		"zero limit":    {"QUERYDECK_GUARD_ROW_LIMIT": "0"},
		"bad log level": {"QUERYDECK_LOG_LEVEL": "loud"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load("querydeck-api", lookupFrom(values)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
