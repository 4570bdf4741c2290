package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenesync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Subsample != 10 {
		t.Errorf("default subsample = %d, want 10", cfg.Subsample)
	}
	if cfg.AssetTimeout != 15*time.Minute {
		t.Errorf("default asset timeout = %s, want 15m", cfg.AssetTimeout)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
download_dir: /mnt/scenes
subsample: 5
workers: 3
asset_timeout: 2m
assets:
  - highres_depth
  - ultrawide
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DownloadDir != "/mnt/scenes" {
		t.Errorf("download_dir = %s", cfg.DownloadDir)
	}
	if cfg.Subsample != 5 || cfg.Workers != 3 {
		t.Errorf("subsample = %d workers = %d", cfg.Subsample, cfg.Workers)
	}
	if cfg.AssetTimeout != 2*time.Minute {
		t.Errorf("asset_timeout = %s", cfg.AssetTimeout)
	}
	if len(cfg.Assets) != 2 {
		t.Errorf("assets = %v", cfg.Assets)
	}
	// Untouched fields keep defaults.
	if cfg.Command != "download_data" {
		t.Errorf("command = %s, want default", cfg.Command)
	}
}

func TestLoadFromFileRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "asset_timeout: soon\n")
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected parse error for bad duration")
	}
}

func TestLoadMissingDefaultFileFallsBack(t *testing.T) {
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DownloadDir != "./data" {
		t.Errorf("expected defaults, got download_dir %s", cfg.DownloadDir)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("explicit missing config must error")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCENESYNC_WORKERS", "7")
	t.Setenv("SCENESYNC_ASSETS", "ultrawide, ultrawide_intrinsics")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 7 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if len(cfg.Assets) != 2 || cfg.Assets[0] != "ultrawide" {
		t.Errorf("assets = %v", cfg.Assets)
	}

	t.Setenv("SCENESYNC_WORKERS", "many")
	if err := cfg.LoadFromEnv(); err == nil {
		t.Fatal("expected error for non-numeric workers")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.DownloadDir = "" },
		func(c *Config) { c.Subsample = 0 },
		func(c *Config) { c.Workers = 0 },
		func(c *Config) { c.Command = "" },
		func(c *Config) { c.Assets = nil },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
