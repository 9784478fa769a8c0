package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/blacktop/go-termimg"
	"github.com/kartoza/kartoza-mockup-recorder/internal/compositor"
	"github.com/kartoza/kartoza-mockup-recorder/internal/config"
	"github.com/kartoza/kartoza-mockup-recorder/internal/media"
	"github.com/kartoza/kartoza-mockup-recorder/internal/snapshot"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"
)

var previewOpts struct {
	input     string
	at        float64
	out       string
	width     int
	sceneOpts sceneFlags
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show one composed frame",
	Long: `Compose a single frame of the input inside the device mockup and show it in
the terminal (Kitty, iTerm2 or Sixel graphics), or write it as a PNG with --out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		previewOpts.sceneOpts.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		frame, err := composePreview(ctx, cfg)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, frame); err != nil {
			return fmt.Errorf("failed to encode preview: %w", err)
		}

		if previewOpts.out != "" {
			if err := os.WriteFile(previewOpts.out, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write preview: %w", err)
			}
			fmt.Printf("Preview written to %s\n", previewOpts.out)
			return nil
		}

		ti, err := termimg.From(bytes.NewReader(buf.Bytes()))
		if err != nil {
			return fmt.Errorf("failed to prepare terminal image: %w", err)
		}
		ti.Protocol(termimg.DetectProtocol()).
			Width(previewOpts.width).
			Scale(termimg.ScaleFit)

		rendered, err := ti.Render()
		if err != nil {
			return fmt.Errorf("terminal cannot show images, use --out: %w", err)
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewOpts.input, "input", "i", "", "Video file to sample")
	previewCmd.Flags().Float64Var(&previewOpts.at, "at", 0, "Position in seconds")
	previewCmd.Flags().StringVar(&previewOpts.out, "out", "", "Write a PNG instead of drawing in the terminal")
	previewCmd.Flags().IntVar(&previewOpts.width, "width", 40, "Terminal width in cells")
	previewCmd.Flags().StringVarP(&previewOpts.sceneOpts.profile, "profile", "p", "", "Device profile (see 'profiles')")
	previewCmd.Flags().StringVarP(&previewOpts.sceneOpts.background, "background", "b", "", "Background colour, #rrggbb or #from:#to")
	_ = previewCmd.MarkFlagRequired("input")
}

// composePreview renders the page once with overlays hidden, samples the
// requested frame and composes the two like an export tick would
func composePreview(ctx context.Context, cfg *config.Config) (image.Image, error) {
	scene, err := buildScene(cfg)
	if err != nil {
		return nil, err
	}
	scene.SetOverlaysHidden(true)

	source, err := media.Open(ctx, previewOpts.input, nil)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	if err := source.SetPosition(time.Duration(previewOpts.at * float64(time.Second))); err != nil {
		return nil, err
	}
	if err := source.Sample(ctx); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, cfg.SnapshotTimeout())
	defer cancel()
	background, err := snapshot.RasterProvider{}.Capture(sctx, scene)
	if err != nil {
		return nil, err
	}

	fallback := color.Color(color.White)
	if c, err := colorful.Hex(cfg.FallbackColor); err == nil {
		fallback = c
	}
	b := scene.Bounds()
	comp, err := compositor.New(b.Dx(), b.Dy(), fallback)
	if err != nil {
		return nil, err
	}
	if err := comp.Compose(background, source, scene.Clip()); err != nil {
		return nil, err
	}
	return comp.Surface(), nil
}
