package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesBuiltinValues(t *testing.T) {
	cfg := Default()
	if cfg.ClusterMasks.Little != "0-3" || cfg.ClusterMasks.Big != "4-7" || cfg.ClusterMasks.Both != "0-7" {
		t.Fatalf("unexpected default cluster masks: %+v", cfg.ClusterMasks)
	}
	if cfg.TickPeriodMS != 20 {
		t.Fatalf("expected default tick period of 20ms, got %d", cfg.TickPeriodMS)
	}
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg := Load("")
	if *cfg != *Default() {
		t.Fatalf("Load(\"\") should equal Default()")
	}
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "tick_period_ms: 50\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := Load(path)
	if cfg.TickPeriodMS != 50 {
		t.Fatalf("expected overridden tick_period_ms of 50, got %d", cfg.TickPeriodMS)
	}
	// Cluster masks were not present in the YAML file, so they must keep
	// their built-in defaults.
	if cfg.ClusterMasks != Default().ClusterMasks {
		t.Fatalf("unset fields must keep their defaults, got %+v", cfg.ClusterMasks)
	}
}

func TestLoadFallsBackToDefaultsOnMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := Load(path)
	if *cfg != *Default() {
		t.Fatalf("a malformed config file must leave every field at its default")
	}
}

func TestLoadFallsBackToDefaultsOnMissingFile(t *testing.T) {
	cfg := Load("/nonexistent/path/config.yaml")
	if *cfg != *Default() {
		t.Fatalf("a missing config file must leave every field at its default")
	}
}

func TestTickPeriod(t *testing.T) {
	cfg := &Config{TickPeriodMS: 20}
	if cfg.TickPeriod().Milliseconds() != 20 {
		t.Fatalf("got %v, want 20ms", cfg.TickPeriod())
	}
}
