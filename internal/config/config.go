package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".config/kartoza-mockup-recorder"
	// DefaultVideosDir is the default output directory for exports
	DefaultVideosDir = "Videos/Mockups"
	// ConfigFileName is the name of the configuration file
	ConfigFileName = "config.json"
	// ProfilesFileName holds user-defined device profiles
	ProfilesFileName = "profiles.toml"
	// LockFileName is the cross-process export lock
	LockFileName = "export.lock"
)

// Config holds the application configuration
type Config struct {
	OutputDir           string   `json:"output_dir"`
	Profile             string   `json:"profile"`
	BackgroundColor     string   `json:"background_color"`
	FPS                 int      `json:"fps"`
	RefreshRate         int      `json:"refresh_rate,omitempty"`
	UpperBoundMs        int      `json:"upper_bound_ms"`
	SettleDelayMs       int      `json:"settle_delay_ms"`
	SettleTimeoutMs     int      `json:"settle_timeout_ms"`
	SnapshotTimeoutMs   int      `json:"snapshot_timeout_ms"`
	SnapshotPlaceholder bool     `json:"snapshot_placeholder"`
	SnapshotScale       float64  `json:"snapshot_scale"`
	SnapshotCommand     []string `json:"snapshot_command,omitempty"`
	FallbackColor       string   `json:"fallback_color"`
	CornerRadius        float64  `json:"corner_radius,omitempty"`
	MaxCompositeErrors  int      `json:"max_composite_errors"`
	CompletedHoldMs     int      `json:"completed_hold_ms"`
	Codecs              []string `json:"codecs"`
	MaxBitrate          int      `json:"max_bitrate"`
	Notifications       bool     `json:"notifications"`
	LockFile            bool     `json:"lock_file"`
	LogLevel            string   `json:"log_level"`
	LogFormat           string   `json:"log_format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		OutputDir:           GetDefaultVideosDir(),
		Profile:             "iphone",
		BackgroundColor:     "#f5f5f5",
		FPS:                 30,
		UpperBoundMs:        10000,
		SettleDelayMs:       500,
		SettleTimeoutMs:     2000,
		SnapshotTimeoutMs:   5000,
		SnapshotPlaceholder: true,
		SnapshotScale:       1,
		FallbackColor:       "#ffffff",
		MaxCompositeErrors:  30,
		CompletedHoldMs:     2000,
		Codecs:              []string{"vp9", "vp8", "av1", "h264"},
		MaxBitrate:          8_000_000,
		Notifications:       true,
		LockFile:            true,
		LogLevel:            "info",
		LogFormat:           "auto",
	}
}

// UpperBound is the ceiling on recording length
func (c *Config) UpperBound() time.Duration {
	return time.Duration(c.UpperBoundMs) * time.Millisecond
}

// SettleDelay is the pause after hiding overlays before measuring the region
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// SettleTimeout bounds the overlay hide + settle step
func (c *Config) SettleTimeout() time.Duration {
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

// SnapshotTimeout bounds the background snapshot
func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.SnapshotTimeoutMs) * time.Millisecond
}

// CompletedHold is how long the completion message stays visible
func (c *Config) CompletedHold() time.Duration {
	return time.Duration(c.CompletedHoldMs) * time.Millisecond
}

// TickRate returns the refresh rate used for compositing ticks
func (c *Config) TickRate() int {
	if c.RefreshRate > 0 {
		return c.RefreshRate
	}
	return c.FPS
}

// Validate checks the configuration for values the pipeline cannot use
func (c *Config) Validate() error {
	var errs []error
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.RefreshRate < 0 {
		errs = append(errs, fmt.Errorf("refresh_rate must not be negative, got %d", c.RefreshRate))
	}
	if c.UpperBoundMs <= 0 {
		errs = append(errs, fmt.Errorf("upper_bound_ms must be positive, got %d", c.UpperBoundMs))
	}
	if c.SettleDelayMs < 0 || c.SettleTimeoutMs < 0 || c.SnapshotTimeoutMs < 0 || c.CompletedHoldMs < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.SnapshotScale <= 0 {
		errs = append(errs, fmt.Errorf("snapshot_scale must be positive, got %g", c.SnapshotScale))
	}
	if c.CornerRadius < 0 {
		errs = append(errs, fmt.Errorf("corner_radius must not be negative, got %g", c.CornerRadius))
	}
	if c.MaxCompositeErrors <= 0 {
		errs = append(errs, fmt.Errorf("max_composite_errors must be positive, got %d", c.MaxCompositeErrors))
	}
	if c.MaxBitrate <= 0 {
		errs = append(errs, fmt.Errorf("max_bitrate must be positive, got %d", c.MaxBitrate))
	}
	if len(c.Codecs) == 0 {
		errs = append(errs, errors.New("codecs must list at least one codec"))
	}
	// background_color may be a two stop gradient written as "#rrggbb:#rrggbb"
	for _, stop := range strings.SplitN(c.BackgroundColor, ":", 2) {
		if _, err := colorful.Hex(stop); err != nil {
			errs = append(errs, fmt.Errorf("background_color %q is not a #rrggbb colour or gradient", c.BackgroundColor))
			break
		}
	}
	if _, err := colorful.Hex(c.FallbackColor); err != nil {
		errs = append(errs, fmt.Errorf("fallback_color %q is not a #rrggbb colour", c.FallbackColor))
	}
	return errors.Join(errs...)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigDir
	}
	return filepath.Join(home, DefaultConfigDir)
}

// GetDefaultVideosDir returns the default videos directory path
func GetDefaultVideosDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultVideosDir
	}
	return filepath.Join(home, DefaultVideosDir)
}

// GetLockPath returns the path of the cross-process export lock
func GetLockPath() string {
	return filepath.Join(GetConfigDir(), LockFileName)
}

// GetProfilesPath returns the path of the user profiles file
func GetProfilesPath() string {
	return filepath.Join(GetConfigDir(), ProfilesFileName)
}

// EnsureDirectories creates the necessary directories
func EnsureDirectories() error {
	dirs := []string{
		GetConfigDir(),
		GetDefaultVideosDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// Load loads the configuration from disk and applies environment overrides
func Load() (*Config, error) {
	cfg, err := LoadFile(filepath.Join(GetConfigDir(), ConfigFileName))
	if err != nil {
		return nil, err
	}
	LoadEnv(filepath.Join(GetConfigDir(), ".env"), ".env")
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file, returning defaults when it is missing.
// Missing keys keep their default values.
func LoadFile(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	return &cfg, nil
}

// Save saves the configuration to disk
func Save(cfg *Config) error {
	if err := EnsureDirectories(); err != nil {
		return err
	}
	return SaveFile(cfg, filepath.Join(GetConfigDir(), ConfigFileName))
}

// SaveFile writes the configuration to the given path
func SaveFile(cfg *Config, configPath string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
