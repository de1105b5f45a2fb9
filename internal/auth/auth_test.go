package auth

import (
	"context"
	"testing"
)

func TestStaticAPIKeyValidatorParsesSpec(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:analyst, k2:bob:analyst|exporter")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator: %v", err)
	}

	identity, ok := validator.Validate(context.Background(), "k1")
	if !ok || identity.Name != "alice" {
		t.Fatalf("identity = %+v ok = %v", identity, ok)
	}
	if !identity.HasRole(RoleAnalyst) || identity.HasRole(RoleExporter) {
		t.Fatalf("roles = %v", identity.Roles)
	}

	identity, ok = validator.Validate(context.Background(), "k2")
	if !ok || !identity.HasRole(RoleExporter) {
		t.Fatalf("identity = %+v ok = %v", identity, ok)
	}

	if _, ok := validator.Validate(context.Background(), "nope"); ok {
		t.Fatal("unknown key should not validate")
	}
}

func TestStaticAPIKeyValidatorEmptySpec(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("  ")
	if err != nil {
		t.Fatalf("empty spec should parse: %v", err)
	}
	if _, ok := validator.Validate(context.Background(), "any"); ok {
		t.Fatal("empty spec should reject every key")
	}
}

func TestStaticAPIKeyValidatorRejectsMalformedEntries(t *testing.T) {
	for _, spec := range []string{"justakey", "k::analyst", "k:name:", "k:name"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q should fail to parse", spec)
		}
	}
}
