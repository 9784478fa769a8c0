package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kartoza/kartoza-mockup-recorder/internal/config"
	"github.com/kartoza/kartoza-mockup-recorder/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version     = "dev"
	debugMode   bool
	configPath  string
	metricsFile string
)

// SetVersion sets the application version (called from main)
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "kartoza-mockup-recorder",
	Short: "Export a video playing inside a device mockup",
	Long: `Kartoza Mockup Recorder plays a video inside a phone or tablet frame and
exports exactly what is on screen as a new video file.

It supports:
  - Built-in iPhone, Android and tablet frames plus your own TOML profiles
  - Solid and gradient page backgrounds
  - VP9, VP8, AV1 or H.264 output, whichever ffmpeg can encode
  - An interactive progress screen with cooperative cancel`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/kartoza-mockup-recorder/config.json)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config or the default one,
// then applies environment overrides
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err == nil {
			config.LoadEnv(filepath.Join(filepath.Dir(configPath), ".env"), ".env")
			err = config.ApplyEnv(cfg)
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the command logger writing to w
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.New(w, cfg.LogLevel, cfg.LogFormat)
}
