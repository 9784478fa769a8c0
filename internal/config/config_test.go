package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OutputDir == "" {
		t.Error("expected OutputDir to be set")
	}

	if cfg.FPS != 30 {
		t.Errorf("expected FPS to be 30, got %d", cfg.FPS)
	}

	if cfg.UpperBound() != 10*time.Second {
		t.Errorf("expected upper bound of 10s, got %v", cfg.UpperBound())
	}

	if cfg.SettleDelay() != 500*time.Millisecond {
		t.Errorf("expected settle delay of 500ms, got %v", cfg.SettleDelay())
	}

	if !cfg.SnapshotPlaceholder {
		t.Error("expected SnapshotPlaceholder to be true by default")
	}

	if cfg.Codecs[0] != "vp9" {
		t.Errorf("expected vp9 to be the preferred codec, got %q", cfg.Codecs[0])
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestConfig_TickRate(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TickRate() != cfg.FPS {
		t.Errorf("expected tick rate to default to fps, got %d", cfg.TickRate())
	}

	cfg.RefreshRate = 60
	if cfg.TickRate() != 60 {
		t.Errorf("expected tick rate 60, got %d", cfg.TickRate())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero fps", func(c *Config) { c.FPS = 0 }, "fps must be positive"},
		{"zero bound", func(c *Config) { c.UpperBoundMs = 0 }, "upper_bound_ms"},
		{"negative delay", func(c *Config) { c.SettleDelayMs = -1 }, "durations"},
		{"bad colour", func(c *Config) { c.BackgroundColor = "blue" }, "background_color"},
		{"bad gradient stop", func(c *Config) { c.BackgroundColor = "#ffffff:teal" }, "background_color"},
		{"bad fallback", func(c *Config) { c.FallbackColor = "#12" }, "fallback_color"},
		{"no codecs", func(c *Config) { c.Codecs = nil }, "codecs"},
		{"zero scale", func(c *Config) { c.SnapshotScale = 0 }, "snapshot_scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if dir == "" {
		t.Error("expected non-empty config directory")
	}

	if !strings.Contains(dir, DefaultConfigDir) {
		t.Errorf("expected config dir to contain %q, got %q", DefaultConfigDir, dir)
	}

	if filepath.Base(GetLockPath()) != LockFileName {
		t.Errorf("unexpected lock path %q", GetLockPath())
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Profile != "iphone" {
		t.Errorf("expected default profile, got %q", cfg.Profile)
	}
}

func TestSaveFileAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := DefaultConfig()
	cfg.OutputDir = "/test/output"
	cfg.FPS = 24
	cfg.Codecs = []string{"vp8"}

	if err := SaveFile(&cfg, path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if loaded.OutputDir != "/test/output" {
		t.Errorf("expected OutputDir to be /test/output, got %s", loaded.OutputDir)
	}
	if loaded.FPS != 24 {
		t.Errorf("expected FPS 24, got %d", loaded.FPS)
	}
	if len(loaded.Codecs) != 1 || loaded.Codecs[0] != "vp8" {
		t.Errorf("unexpected codecs %v", loaded.Codecs)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"fps": 60}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FPS != 60 {
		t.Errorf("expected FPS 60, got %d", cfg.FPS)
	}
	if cfg.UpperBoundMs != 10000 {
		t.Errorf("expected default upper bound to survive, got %d", cfg.UpperBoundMs)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("KMR_FPS", "25")
	t.Setenv("KMR_PROFILE", "android")
	t.Setenv("KMR_SNAPSHOT_PLACEHOLDER", "false")
	t.Setenv("KMR_CODECS", "vp8, h264")

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FPS != 25 {
		t.Errorf("expected FPS 25, got %d", cfg.FPS)
	}
	if cfg.Profile != "android" {
		t.Errorf("expected profile android, got %q", cfg.Profile)
	}
	if cfg.SnapshotPlaceholder {
		t.Error("expected SnapshotPlaceholder to be false")
	}
	if len(cfg.Codecs) != 2 || cfg.Codecs[1] != "h264" {
		t.Errorf("unexpected codecs %v", cfg.Codecs)
	}
}

func TestApplyEnv_InvalidInt(t *testing.T) {
	t.Setenv("KMR_FPS", "fast")

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err == nil {
		t.Error("expected error for non-numeric KMR_FPS")
	}
}

func TestLoadEnv_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KMR_TEST_ONLY_VALUE=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("KMR_TEST_ONLY_VALUE") })

	LoadEnv(filepath.Join(t.TempDir(), "missing.env"), path)

	if got := GetEnv("KMR_TEST_ONLY_VALUE", ""); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestConfig_ValidateGradientBackground(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BackgroundColor = "#ff0096:#00ccff"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected gradient background to validate, got %v", err)
	}
}
