package cmd

import (
	"fmt"

	"github.com/kartoza/kartoza-mockup-recorder/internal/config"
	"github.com/kartoza/kartoza-mockup-recorder/internal/deps"
	"github.com/kartoza/kartoza-mockup-recorder/internal/mockup"
	"github.com/kartoza/kartoza-mockup-recorder/internal/snapshot"
)

// sceneFlags are the overrides shared by export and preview
type sceneFlags struct {
	profile    string
	background string
}

func (f sceneFlags) apply(cfg *config.Config) {
	if f.profile != "" {
		cfg.Profile = f.profile
	}
	if f.background != "" {
		cfg.BackgroundColor = f.background
	}
}

// buildScene resolves the configured profile and lays out the page
func buildScene(cfg *config.Config) (*mockup.Scene, error) {
	registry, err := mockup.LoadRegistry(config.GetProfilesPath())
	if err != nil {
		return nil, err
	}
	profile, err := registry.Lookup(cfg.Profile)
	if err != nil {
		return nil, err
	}
	fill, err := mockup.ParseFill(cfg.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("invalid background: %w", err)
	}
	return mockup.NewScene(profile, mockup.Options{
		Background:   fill,
		ScreenRadius: cfg.CornerRadius,
	})
}

// snapshotProvider picks the background capture method. "screen" shells out
// to the display server's screenshot tool unless a command is configured.
func snapshotProvider(cfg *config.Config, mode string) (snapshot.Provider, error) {
	switch mode {
	case "", "raster":
		if len(cfg.SnapshotCommand) > 0 {
			return snapshot.CommandProvider{Command: cfg.SnapshotCommand, Scale: cfg.SnapshotScale}, nil
		}
		return snapshot.RasterProvider{Scale: cfg.SnapshotScale}, nil
	case "screen":
		command := cfg.SnapshotCommand
		if len(command) == 0 {
			command = deps.SnapshotCommand()
		}
		return snapshot.CommandProvider{Command: command, Scale: cfg.SnapshotScale}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot mode %q (want raster or screen)", mode)
	}
}
