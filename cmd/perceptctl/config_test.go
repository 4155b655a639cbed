package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"run_id": "run-42",
		"a": 1,
		"b": 1,
		"c": 10,
		"learn": 0.01,
		"lowrange": 0,
		"highrange": 10,
		"streak": 150,
		"bias_policy": "threshold",
		"bias_value": -10,
		"activation": "logistic",
		"seed": 7,
		"attempts_limit": 5000
	}`)

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.RunID != "run-42" {
		t.Fatalf("unexpected run id: %s", req.RunID)
	}
	if req.A != 1 || req.B != 1 || req.C != 10 {
		t.Fatalf("boundary coercion mismatch: a=%g b=%g c=%g", req.A, req.B, req.C)
	}
	if req.Learn != 0.01 || req.StreakTarget != 150 || req.Seed != 7 || req.AttemptsLimit != 5000 {
		t.Fatalf("numeric coercion mismatch: %+v", req)
	}
	if req.BiasPolicy != "threshold" || req.Activation != "logistic" {
		t.Fatalf("string coercion mismatch: %+v", req)
	}
	if req.BiasValue == nil || *req.BiasValue != -10 {
		t.Fatalf("bias value not loaded: %v", req.BiasValue)
	}
}

func TestLoadRunRequestIgnoresUnknownAndMissingKeys(t *testing.T) {
	path := writeConfigFile(t, `{"a": 2, "unknown_key": true}`)

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.A != 2 {
		t.Fatalf("expected a=2, got %g", req.A)
	}
	if req.B != 0 || req.Learn != 0 || req.BiasValue != nil {
		t.Fatalf("missing keys must stay zero-valued: %+v", req)
	}
}

func TestLoadRunRequestRejectsMalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadOrDefaultRunRequestEmptyPath(t *testing.T) {
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if req.A != 0 || req.RunID != "" {
		t.Fatalf("expected zero request, got %+v", req)
	}
}

func TestOverrideFromFlags(t *testing.T) {
	path := writeConfigFile(t, `{"a": 1, "b": 1, "c": 10, "learn": 0.01, "seed": 7}`)
	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	overrideFromFlags(&req, map[string]bool{"learn": true, "seed": true, "bias-value": true}, map[string]any{
		"learn":      0.5,
		"seed":       int64(99),
		"bias-value": -3.5,
		"streak":     1000, // not in set, must not apply
	})

	if req.Learn != 0.5 {
		t.Fatalf("learn override failed: %g", req.Learn)
	}
	if req.Seed != 99 {
		t.Fatalf("seed override failed: %d", req.Seed)
	}
	if req.BiasValue == nil || *req.BiasValue != -3.5 {
		t.Fatalf("bias value override failed: %v", req.BiasValue)
	}
	if req.StreakTarget != 0 {
		t.Fatalf("unset flag must not override: %d", req.StreakTarget)
	}
	if req.A != 1 || req.C != 10 {
		t.Fatalf("config values clobbered: %+v", req)
	}
}

func TestRunDispatchUsageErrors(t *testing.T) {
	ctx := context.Background()

	if err := run(ctx, nil); err == nil {
		t.Fatal("expected usage error for missing command")
	}
	if err := run(ctx, []string{"bogus"}); err == nil {
		t.Fatal("expected usage error for unknown command")
	}
}

func TestRunsCommandValidatesLimit(t *testing.T) {
	if err := run(context.Background(), []string{"runs", "-limit", "0"}); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}
