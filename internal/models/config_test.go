package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.CacheDir != "tlc_data" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if len(cfg.SupportedYears) != 3 || !cfg.SupportsYear(2025) {
		t.Errorf("SupportedYears = %v", cfg.SupportedYears)
	}
	if cfg.Impute.PriorYearWt != 0.70 || cfg.Impute.EarlierYearWt != 0.30 {
		t.Errorf("impute weights = %v/%v", cfg.Impute.PriorYearWt, cfg.Impute.EarlierYearWt)
	}
	if cfg.Impute.GrowthFactor != 1.0 {
		t.Errorf("growth factor = %v, want the neutral default 1.0", cfg.Impute.GrowthFactor)
	}
	if cfg.Impute.Seed != 42 {
		t.Errorf("seed = %d", cfg.Impute.Seed)
	}
	if cfg.Elasticity.Threshold != 0.2 {
		t.Errorf("elasticity threshold = %v", cfg.Elasticity.Threshold)
	}
	want := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	if !cfg.TollStartDate.Equal(want) {
		t.Errorf("toll start = %v, want %v", cfg.TollStartDate, want)
	}

	classes, err := cfg.Classes()
	if err != nil {
		t.Fatalf("Classes: %v", err)
	}
	if len(classes) != 2 || classes[0] != Yellow || classes[1] != Green {
		t.Errorf("classes = %v", classes)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlcaudit.yaml")
	yaml := "cache_dir: /data/tlc\nimpute:\n  growth_factor: 1.5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.CacheDir != "/data/tlc" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.Impute.GrowthFactor != 1.5 {
		t.Errorf("growth factor = %v, want the file override", cfg.Impute.GrowthFactor)
	}
	// Untouched keys keep their defaults.
	if cfg.Impute.Seed != 42 {
		t.Errorf("seed = %d", cfg.Impute.Seed)
	}
}
