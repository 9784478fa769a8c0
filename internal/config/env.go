package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "KMR_"

// LoadEnv reads .env files into the process environment. Missing files are
// skipped and variables already set in the environment win.
func LoadEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overlays KMR_* environment variables onto cfg
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"OUTPUT_DIR":       &cfg.OutputDir,
		"PROFILE":          &cfg.Profile,
		"BACKGROUND_COLOR": &cfg.BackgroundColor,
		"FALLBACK_COLOR":   &cfg.FallbackColor,
		"LOG_LEVEL":        &cfg.LogLevel,
		"LOG_FORMAT":       &cfg.LogFormat,
	}
	for key, dst := range strs {
		if v := GetEnv(EnvPrefix+key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"FPS":                  &cfg.FPS,
		"REFRESH_RATE":         &cfg.RefreshRate,
		"UPPER_BOUND_MS":       &cfg.UpperBoundMs,
		"SETTLE_DELAY_MS":      &cfg.SettleDelayMs,
		"SETTLE_TIMEOUT_MS":    &cfg.SettleTimeoutMs,
		"SNAPSHOT_TIMEOUT_MS":  &cfg.SnapshotTimeoutMs,
		"MAX_COMPOSITE_ERRORS": &cfg.MaxCompositeErrors,
		"COMPLETED_HOLD_MS":    &cfg.CompletedHoldMs,
		"MAX_BITRATE":          &cfg.MaxBitrate,
	}
	for key, dst := range ints {
		s := os.Getenv(EnvPrefix + key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, s, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"SNAPSHOT_PLACEHOLDER": &cfg.SnapshotPlaceholder,
		"NOTIFICATIONS":        &cfg.Notifications,
		"LOCK_FILE":            &cfg.LockFile,
	}
	for key, dst := range bools {
		s := os.Getenv(EnvPrefix + key)
		if s == "" {
			continue
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, s, err)
		}
		*dst = b
	}

	if v := os.Getenv(EnvPrefix + "CODECS"); v != "" {
		var codecs []string
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codecs = append(codecs, c)
			}
		}
		cfg.Codecs = codecs
	}

	return nil
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}
