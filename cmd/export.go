package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/kartoza/kartoza-mockup-recorder/internal/config"
	"github.com/kartoza/kartoza-mockup-recorder/internal/deps"
	"github.com/kartoza/kartoza-mockup-recorder/internal/encoder"
	"github.com/kartoza/kartoza-mockup-recorder/internal/export"
	"github.com/kartoza/kartoza-mockup-recorder/internal/logging"
	"github.com/kartoza/kartoza-mockup-recorder/internal/media"
	"github.com/kartoza/kartoza-mockup-recorder/internal/metrics"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/kartoza/kartoza-mockup-recorder/internal/notify"
	"github.com/kartoza/kartoza-mockup-recorder/internal/progress"
	"github.com/kartoza/kartoza-mockup-recorder/internal/session"
	"github.com/kartoza/kartoza-mockup-recorder/internal/tui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var exportOpts struct {
	input     string
	output    string
	fps       int
	plain     bool
	snapshot  string
	sceneOpts sceneFlags
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a video inside a device mockup",
	Long: `Play the input video inside the device frame and record the composition
into a new video file in the output directory.

Press Esc, q or Ctrl+C to cancel; a cancelled export writes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		exportOpts.sceneOpts.apply(cfg)
		if exportOpts.output != "" {
			cfg.OutputDir = exportOpts.output
		}
		if exportOpts.fps > 0 {
			cfg.FPS = exportOpts.fps
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if missing := deps.MissingRequired(); len(missing) > 0 {
			return errors.New(deps.FormatMissing(missing))
		}

		interactive := !exportOpts.plain && logging.IsTerminal(os.Stdout)
		logOut, closeLog, err := exportLogWriter(interactive)
		if err != nil {
			return err
		}
		defer closeLog()

		return runExport(cmd.Context(), cfg, newLogger(cfg, logOut), interactive)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOpts.input, "input", "i", "", "Video file to play inside the mockup")
	exportCmd.Flags().StringVarP(&exportOpts.output, "output", "o", "", "Output directory (default from config)")
	exportCmd.Flags().IntVar(&exportOpts.fps, "fps", 0, "Output frame rate (default from config)")
	exportCmd.Flags().BoolVar(&exportOpts.plain, "plain", false, "Plain progress bar instead of the interactive screen")
	exportCmd.Flags().StringVar(&exportOpts.snapshot, "snapshot", "raster", "Background capture: raster or screen")
	exportCmd.Flags().StringVarP(&exportOpts.sceneOpts.profile, "profile", "p", "", "Device profile (see 'profiles')")
	exportCmd.Flags().StringVarP(&exportOpts.sceneOpts.background, "background", "b", "", "Background colour, #rrggbb or #from:#to")
	_ = exportCmd.MarkFlagRequired("input")
}

// exportLogWriter keeps log lines off the interactive screen by sending them
// to a file in the config directory
func exportLogWriter(interactive bool) (io.Writer, func(), error) {
	if !interactive {
		return os.Stderr, func() {}, nil
	}
	if err := config.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(config.GetConfigDir(), "export.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, interactive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scene, err := buildScene(cfg)
	if err != nil {
		return err
	}
	snapshots, err := snapshotProvider(cfg, exportOpts.snapshot)
	if err != nil {
		return err
	}

	source, err := media.Open(ctx, exportOpts.input, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	format, err := encoder.Negotiate(ctx, cfg.Codecs)
	if err != nil {
		return err
	}

	lock := session.NewLock("")
	if cfg.LockFile {
		lock = session.NewLock(config.GetLockPath())
	}

	notifier := notify.New(cfg.Notifications)
	m := metrics.New()
	sess := session.New(session.Deps{
		Media:     media.NewGuard(source),
		Region:    scene,
		Snapshots: snapshots,
		Encoder:   encoder.FFmpegOpener{},
		Deliverer: &export.Deliverer{Dir: cfg.OutputDir, Notifier: notifier, Logger: logger},
		Lock:      lock,
		Metrics:   m,
		Notifier:  notifier,
		Logger:    logger,
	}, session.OptionsFromConfig(cfg, format))

	logger.Info("starting export",
		"input", exportOpts.input,
		"profile", scene.Profile().Name,
		"codec", format.Codec,
		"encoder", format.Encoder,
	)

	var result tui.Result
	if interactive {
		result, err = exportInteractive(ctx, sess, tui.ExportInfo{
			Input:   exportOpts.input,
			Profile: scene.Profile().Name,
			Codec:   format.Codec,
		})
	} else {
		result, err = exportPlain(ctx, sess)
	}
	if err != nil {
		return err
	}

	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			logger.Warn("failed to write metrics", "path", metricsFile, "error", err)
		}
	}

	switch {
	case errors.Is(result.Err, session.ErrCancelled):
		fmt.Println("Export cancelled, nothing was written.")
		return nil
	case result.Err != nil:
		return result.Err
	}
	fmt.Printf("Saved %s (%s)\n", result.Artifact.Path, humanize.Bytes(uint64(result.Artifact.Size)))
	return nil
}

// cancelOnSignal cancels sess on SIGINT or SIGTERM until stop is called
func cancelOnSignal(ctx context.Context, sess *session.Session) (stop func()) {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				sess.Cancel()
			}
		case <-sess.Done():
		}
	}()
	return cancel
}

func exportInteractive(ctx context.Context, sess *session.Session, info tui.ExportInfo) (tui.Result, error) {
	bridge := tui.NewBridge(sess.Reporter())
	defer bridge.Close()

	if err := sess.Start(ctx); err != nil {
		return tui.Result{}, err
	}
	stop := cancelOnSignal(ctx, sess)
	defer stop()

	done := make(chan tui.Result, 1)
	go func() {
		a, err := sess.Wait()
		done <- tui.Result{Artifact: a, Err: err}
	}()

	result, err := tui.Run(tui.NewExportModel(info, bridge.C(), done, sess.Cancel))
	if err != nil {
		sess.Cancel()
		a, werr := sess.Wait()
		return tui.Result{Artifact: a, Err: werr}, nil
	}
	return result, nil
}

func exportPlain(ctx context.Context, sess *session.Session) (tui.Result, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(progress.StatusPreparing),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	unsubscribe := sess.Reporter().Subscribe(func(s models.ProgressSnapshot) {
		if s.Status != "" {
			bar.Describe(s.Status)
		}
		_ = bar.Set(int(s.Percent))
	})
	defer unsubscribe()

	if err := sess.Start(ctx); err != nil {
		return tui.Result{}, err
	}
	stop := cancelOnSignal(ctx, sess)
	defer stop()

	a, err := sess.Wait()
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	return tui.Result{Artifact: a, Err: err}, nil
}
