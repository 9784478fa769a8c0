// Package session drives one export: it captures the background once, then
// composites and encodes a frame per tick until the media ends or the
// recording bound is reached, and finally hands the encoded stream to the
// export finalizer.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/kartoza-mockup-recorder/internal/compositor"
	"github.com/kartoza/kartoza-mockup-recorder/internal/config"
	"github.com/kartoza/kartoza-mockup-recorder/internal/encoder"
	"github.com/kartoza/kartoza-mockup-recorder/internal/export"
	"github.com/kartoza/kartoza-mockup-recorder/internal/media"
	"github.com/kartoza/kartoza-mockup-recorder/internal/metrics"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/kartoza/kartoza-mockup-recorder/internal/notify"
	"github.com/kartoza/kartoza-mockup-recorder/internal/progress"
	"github.com/kartoza/kartoza-mockup-recorder/internal/snapshot"
	"github.com/kartoza/kartoza-mockup-recorder/internal/ticker"
	"github.com/lucasb-eyer/go-colorful"
)

// Region is the on-screen composition being recorded
type Region interface {
	snapshot.Region
	// MediaRect is the box the media element occupies inside Bounds
	MediaRect() image.Rectangle
}

// Visibility hides UI overlays that must not appear in the export
type Visibility interface {
	SetOverlaysHidden(hidden bool)
}

// Deliverer stores a finished artifact and returns where it went
type Deliverer interface {
	Deliver(a *models.Artifact) (string, error)
}

// Deps are the collaborators of a session. Media and Region are borrowed for
// the duration of an export. Nil optional fields get working defaults.
type Deps struct {
	Media      media.Source
	Region     Region
	Visibility Visibility
	Snapshots  snapshot.Provider
	Encoder    encoder.Opener
	Ticks      ticker.Source
	Reporter   *progress.Reporter
	Deliverer  Deliverer
	Lock       *Lock
	Metrics    *metrics.Metrics
	Notifier   notify.Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

// Options tune the pipeline
type Options struct {
	Profile             string
	FPS                 int
	TickRate            int
	UpperBound          time.Duration
	SettleDelay         time.Duration
	SettleTimeout       time.Duration
	SnapshotTimeout     time.Duration
	SnapshotPlaceholder bool
	CornerRadius        float64
	FallbackColor       color.Color
	MaxCompositeErrors  int
	CompletedHold       time.Duration
	MaxBitrate          int
	Format              encoder.Format
}

// OptionsFromConfig maps the configuration file onto session options
func OptionsFromConfig(cfg *config.Config, format encoder.Format) Options {
	fallback := color.Color(color.White)
	if c, err := colorful.Hex(cfg.FallbackColor); err == nil {
		fallback = c
	}
	return Options{
		Profile:             cfg.Profile,
		FPS:                 cfg.FPS,
		TickRate:            cfg.TickRate(),
		UpperBound:          cfg.UpperBound(),
		SettleDelay:         cfg.SettleDelay(),
		SettleTimeout:       cfg.SettleTimeout(),
		SnapshotTimeout:     cfg.SnapshotTimeout(),
		SnapshotPlaceholder: cfg.SnapshotPlaceholder,
		CornerRadius:        cfg.CornerRadius,
		FallbackColor:       fallback,
		MaxCompositeErrors:  cfg.MaxCompositeErrors,
		CompletedHold:       cfg.CompletedHold(),
		MaxBitrate:          cfg.MaxBitrate,
		Format:              format,
	}
}

func (o *Options) applyDefaults() {
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.TickRate <= 0 {
		o.TickRate = o.FPS
	}
	if o.UpperBound <= 0 {
		o.UpperBound = 10 * time.Second
	}
	if o.FallbackColor == nil {
		o.FallbackColor = color.White
	}
	if o.MaxCompositeErrors <= 0 {
		o.MaxCompositeErrors = 30
	}
	if o.CompletedHold <= 0 {
		o.CompletedHold = 2 * time.Second
	}
}

// Session runs exports one at a time. It may be started again once the
// previous export has finished.
type Session struct {
	deps Deps
	opts Options

	mu    sync.Mutex
	state *models.RecordingSession
	run   *run
}

// run is the per-export bookkeeping shared between the caller and the
// event loop goroutine
type run struct {
	cancelled  atomic.Bool
	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
	artifact   *models.Artifact
	err        error

	// finished is guarded by Session.mu and set before the terminal
	// snapshot is published
	finished bool
}

func (r *run) cancel() {
	r.cancelOnce.Do(func() {
		r.cancelled.Store(true)
		close(r.cancelCh)
	})
}

// New creates an idle session
func New(deps Deps, opts Options) *Session {
	opts.applyDefaults()
	if deps.Snapshots == nil {
		deps.Snapshots = snapshot.RasterProvider{}
	}
	if deps.Encoder == nil {
		deps.Encoder = encoder.FFmpegOpener{}
	}
	if deps.Ticks == nil {
		deps.Ticks = ticker.Refresh{}
	}
	if deps.Lock == nil {
		deps.Lock = processLock
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Silent{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Reporter == nil {
		deps.Reporter = progress.New(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Visibility == nil {
		if v, ok := deps.Region.(Visibility); ok {
			deps.Visibility = v
		}
	}
	return &Session{
		deps:  deps,
		opts:  opts,
		state: models.NewRecordingSession(),
	}
}

// Reporter returns the progress reporter snapshots are published to
func (s *Session) Reporter() *progress.Reporter {
	return s.deps.Reporter
}

// State returns a copy of the current session fields without chunk data
func (s *Session) State() models.RecordingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *s.state
	st.Chunks = nil
	return st
}

// Progress returns the last published snapshot
func (s *Session) Progress() models.ProgressSnapshot {
	if p, ok := s.deps.Reporter.Last(); ok {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot("")
}

// Start begins an export and returns once it is running. The export
// continues on its own goroutine; use Wait for the result.
func (s *Session) Start(ctx context.Context) error {
	if s.deps.Media == nil || s.deps.Region == nil {
		return ErrCollaboratorMissing
	}

	s.mu.Lock()
	if s.run != nil && !s.run.finished {
		s.mu.Unlock()
		return ErrSessionActive
	}
	if err := s.deps.Lock.TryAcquire(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.state = &models.RecordingSession{ID: uuid.NewString(), Phase: models.PhasePreparing}
	r := &run{cancelCh: make(chan struct{}), done: make(chan struct{})}
	s.run = r
	id := s.state.ID
	snap := s.state.Snapshot(progress.StatusPreparing)
	s.mu.Unlock()

	s.deps.Reporter.Begin(id)
	s.deps.Reporter.Publish(snap)
	s.deps.Metrics.SessionStarted()
	if err := s.deps.Notifier.ExportStarted(s.opts.Profile); err != nil {
		s.deps.Logger.Debug("notification failed", "error", err)
	}

	go s.loop(ctx, r, id)
	return nil
}

// Cancel stops the running export at its next tick or suspension point.
// The output is discarded.
func (s *Session) Cancel() {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()
	if r != nil {
		r.cancel()
	}
}

// Wait blocks until the current export finishes and returns its artifact
func (s *Session) Wait() (*models.Artifact, error) {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()
	if r == nil {
		return nil, errors.New("no export has been started")
	}
	<-r.done
	return r.artifact, r.err
}

// Done is closed when the current export finishes
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.run.done
}

// loop is the event loop of one export. Every phase change happens here.
func (s *Session) loop(ctx context.Context, r *run, id string) {
	defer close(r.done)

	started := s.deps.Now()
	logger := s.deps.Logger.With("session", id)
	e := &execution{s: s, r: r, ctx: ctx, logger: logger, src: s.deps.Media}

	artifact, err := e.execute()

	e.cleanup()
	seconds := s.deps.Now().Sub(started).Seconds()
	percent := s.percent()

	// released before the terminal snapshot so its subscribers can start
	// the next export
	r.artifact, r.err = artifact, err
	if lerr := s.deps.Lock.Release(); lerr != nil {
		logger.Warn("failed to release export lock", "error", lerr)
	}

	switch {
	case err == nil:
		s.deps.Metrics.SessionEnded(metrics.OutcomeCompleted, seconds)
		logger.Info("export completed", "path", artifact.Path, "frames", e.frames)
		s.deps.Reporter.HoldThenClear(s.opts.CompletedHold)
		s.finish(r, models.PhaseIdle, 100, progress.StatusCompleted, "")

	case errors.Is(err, ErrCancelled):
		s.deps.Metrics.SessionEnded(metrics.OutcomeCancelled, seconds)
		logger.Info("export cancelled", "frames", e.frames)
		s.finish(r, models.PhaseIdle, percent, progress.StatusCancelled, "")

	default:
		s.deps.Metrics.SessionEnded(metrics.OutcomeFailed, seconds)
		if nerr := s.deps.Notifier.ExportFailed(err.Error()); nerr != nil {
			logger.Debug("notification failed", "error", nerr)
		}
		logger.Error("export failed", "phase", e.phase, "error", err)
		s.finish(r, models.PhaseFailed, percent, "Export failed: "+err.Error(), err.Error())
	}
}

func (s *Session) percent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Percent()
}

// finish resets the run fields, marks r finished and publishes the terminal
// snapshot. Nothing of r's state may be touched afterwards: a subscriber
// may already have started the next export.
func (s *Session) finish(r *run, phase models.Phase, percent float64, status, reason string) {
	s.mu.Lock()
	r.finished = true
	total := s.state.Total
	elapsed := s.state.Elapsed
	frames := s.state.FrameCount
	s.state.Reset()
	s.state.Phase = phase
	s.state.Error = reason
	if phase == models.PhaseFailed {
		s.state.Total, s.state.Elapsed, s.state.FrameCount = total, elapsed, frames
	}
	snap := models.ProgressSnapshot{
		SessionID:      s.state.ID,
		Phase:          phase,
		Percent:        percent,
		ElapsedSeconds: elapsed.Seconds(),
		TotalSeconds:   total.Seconds(),
		Status:         status,
	}
	s.mu.Unlock()

	s.deps.Reporter.Publish(snap)
}

func (s *Session) setPhase(phase models.Phase, status string) {
	s.mu.Lock()
	s.state.Phase = phase
	snap := s.state.Snapshot(status)
	s.mu.Unlock()
	s.deps.Reporter.Publish(snap)
}

// execution holds the resources acquired by one export so that cleanup can
// release exactly what was taken
type execution struct {
	s      *Session
	r      *run
	ctx    context.Context
	logger *slog.Logger

	src       media.Source
	release   func()
	hidden    bool
	sink      encoder.Sink
	sinkDone  bool
	tick      ticker.Ticker
	playing   bool
	phase     models.Phase
	frames    int64
	compFails int
}

func (e *execution) execute() (*models.Artifact, error) {
	s := e.s
	e.phase = models.PhasePreparing

	if l, ok := e.src.(media.Lender); ok {
		src, release, err := l.Borrow()
		if err != nil {
			return nil, fmt.Errorf("failed to borrow media: %w", err)
		}
		e.src, e.release = src, release
	}

	duration, ok := e.src.Duration()
	if !ok || duration <= 0 {
		return nil, ErrDurationUnknown
	}
	total := min(duration, s.opts.UpperBound)
	s.mu.Lock()
	s.state.Total = total
	s.mu.Unlock()

	if s.deps.Visibility != nil {
		s.deps.Visibility.SetOverlaysHidden(true)
		e.hidden = true
	}
	if err := e.settle(); err != nil {
		return nil, err
	}

	background, err := e.captureBackground()
	if err != nil {
		return nil, err
	}
	if err := e.checkCancel(); err != nil {
		return nil, err
	}

	bounds := s.deps.Region.Bounds()
	comp, err := compositor.New(bounds.Dx(), bounds.Dy(), s.opts.FallbackColor)
	if err != nil {
		return nil, err
	}
	clip := e.clip(bounds)

	e.sink, err = s.deps.Encoder.Open(e.ctx, encoder.Options{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		FPS:        s.opts.FPS,
		MaxBitrate: s.opts.MaxBitrate,
		Format:     s.opts.Format,
		OnChunk:    e.appendChunk,
	})
	if err != nil {
		if !errors.Is(err, ErrEncoderOpen) {
			err = fmt.Errorf("%w: %w", ErrEncoderOpen, err)
		}
		return nil, err
	}

	if err := e.src.SetPosition(0); err != nil {
		return nil, fmt.Errorf("failed to rewind media: %w", err)
	}
	if err := e.src.Play(e.ctx); err != nil {
		return nil, fmt.Errorf("failed to play media: %w", err)
	}
	e.playing = true

	start := s.deps.Now()
	s.mu.Lock()
	s.state.StartTime = start
	s.mu.Unlock()
	e.phase = models.PhaseRecording
	s.setPhase(models.PhaseRecording, progress.StatusRecording)
	e.logger.Info("recording started", "total", total, "size", bounds.Size(), "codec", s.opts.Format.Codec)

	if err := e.record(comp, background, clip, start, total); err != nil {
		return nil, err
	}

	e.phase = models.PhaseFinalizing
	s.setPhase(models.PhaseFinalizing, progress.StatusFinalizing)
	return e.finalize()
}

// settle gives the layout time to reflow after overlays are hidden
func (e *execution) settle() error {
	delay, limit := e.s.opts.SettleDelay, e.s.opts.SettleTimeout
	if delay <= 0 {
		return e.checkCancel()
	}

	wait := delay
	timedOut := false
	if limit > 0 && delay > limit {
		wait, timedOut = limit, true
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		if timedOut {
			return fmt.Errorf("%w after %v", ErrSettleTimeout, limit)
		}
		return nil
	case <-e.r.cancelCh:
		return ErrCancelled
	case <-e.ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, e.ctx.Err())
	}
}

func (e *execution) captureBackground() (image.Image, error) {
	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	if t := e.s.opts.SnapshotTimeout; t > 0 {
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	go func() {
		select {
		case <-e.r.cancelCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	img, err := e.s.deps.Snapshots.Capture(ctx, e.s.deps.Region)
	if err == nil {
		return img, nil
	}
	if cerr := e.checkCancel(); cerr != nil {
		return nil, cerr
	}
	if e.s.opts.SnapshotPlaceholder {
		e.logger.Warn("background snapshot failed, using placeholder", "error", err)
		return nil, nil
	}
	return nil, err
}

func (e *execution) clip(bounds image.Rectangle) models.ClipGeometry {
	r := e.s.deps.Region.MediaRect().Sub(bounds.Min)
	radius := e.s.opts.CornerRadius
	if radius == 0 {
		if rr, ok := e.s.deps.Region.(interface{ ScreenRadius() float64 }); ok {
			radius = rr.ScreenRadius()
		}
	}
	return models.ClipGeometry{
		X:            float64(r.Min.X),
		Y:            float64(r.Min.Y),
		Width:        float64(r.Dx()),
		Height:       float64(r.Dy()),
		CornerRadius: radius,
	}
}

func (e *execution) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	e.s.mu.Lock()
	e.s.state.Chunks = append(e.s.state.Chunks, chunk)
	e.s.mu.Unlock()
	e.s.deps.Metrics.AddEncodedBytes(len(chunk))
}

// record composes on every tick and keeps the encoded frame count in step
// with elapsed time at the output rate, until the bound is reached,
// the media ends or the export is cancelled
func (e *execution) record(comp *compositor.Compositor, background image.Image, clip models.ClipGeometry, start time.Time, total time.Duration) error {
	s := e.s
	e.tick = s.deps.Ticks.Start(start, ticker.Interval(s.opts.TickRate))

	for {
		var now time.Time
		select {
		case now = <-e.tick.C():
		case <-e.r.cancelCh:
			return ErrCancelled
		case <-e.ctx.Done():
			return fmt.Errorf("%w: %w", ErrCancelled, e.ctx.Err())
		}
		if e.r.cancelled.Load() {
			return ErrCancelled
		}

		elapsed := now.Sub(start)
		if due := framesDue(min(elapsed, total), s.opts.FPS); due > e.frames {
			if err := e.writeFrames(comp, background, clip, due); err != nil {
				return err
			}
		}

		s.mu.Lock()
		s.state.FrameCount = e.frames
		s.state.Elapsed = min(elapsed, total)
		snap := s.state.Snapshot(progress.StatusRecording)
		s.mu.Unlock()
		s.deps.Reporter.Publish(snap)

		if elapsed >= total || e.src.Ended() {
			return nil
		}
	}
}

// framesDue is how many output frames cover elapsed at fps. The half
// millisecond of slack absorbs tick intervals truncated to whole nanoseconds.
func framesDue(elapsed time.Duration, fps int) int64 {
	return (elapsed.Nanoseconds()*int64(fps) + int64(time.Millisecond/2)) / int64(time.Second)
}

// writeFrames composes the current media frame once and writes it until the
// sink holds due frames. Slow or dropped ticks are made up with repeats and
// ticks faster than fps write nothing.
func (e *execution) writeFrames(comp *compositor.Compositor, background image.Image, clip models.ClipGeometry, due int64) error {
	s := e.s
	if err := comp.Compose(background, e.src, clip); err != nil {
		e.compFails++
		s.deps.Metrics.IncCompositeErrors()
		e.logger.Debug("compositing failed", "error", err, "consecutive", e.compFails)
		if e.compFails >= s.opts.MaxCompositeErrors {
			return fmt.Errorf("%d consecutive frames failed: %w", e.compFails, err)
		}
	} else {
		e.compFails = 0
	}

	for e.frames < due {
		if err := e.sink.WriteFrame(comp.Surface()); err != nil {
			if !errors.Is(err, ErrEncoderWrite) {
				err = fmt.Errorf("%w: %w", ErrEncoderWrite, err)
			}
			return err
		}
		e.frames++
		s.deps.Metrics.IncFramesComposed()
	}
	return nil
}

func (e *execution) finalize() (*models.Artifact, error) {
	s := e.s
	e.stopTicker()
	e.pauseMedia()

	e.sinkDone = true
	if err := e.sink.Close(); err != nil {
		return nil, fmt.Errorf("%w: flush: %w", ErrEncoderWrite, err)
	}

	s.mu.Lock()
	chunks := s.state.Chunks
	s.mu.Unlock()

	artifact, err := export.Finalize(chunks, s.opts.Format, s.deps.Now())
	if err != nil {
		return nil, err
	}
	if s.deps.Deliverer != nil {
		if _, err := s.deps.Deliverer.Deliver(artifact); err != nil {
			return nil, fmt.Errorf("failed to deliver export: %w", err)
		}
	}
	return artifact, nil
}

func (e *execution) checkCancel() error {
	if e.r.cancelled.Load() {
		return ErrCancelled
	}
	if err := e.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func (e *execution) stopTicker() {
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
}

func (e *execution) pauseMedia() {
	if !e.playing {
		return
	}
	e.playing = false
	if err := e.src.Pause(); err != nil {
		e.logger.Warn("failed to pause media", "error", err)
	}
}

// cleanup releases whatever execute acquired. On cancel the sink is drained
// and its output dropped; on failure it is aborted.
func (e *execution) cleanup() {
	e.stopTicker()
	e.pauseMedia()

	if e.sink != nil && !e.sinkDone {
		e.sinkDone = true
		if e.r.cancelled.Load() || e.ctx.Err() != nil {
			if err := e.sink.Close(); err != nil {
				e.logger.Debug("encoder close after cancel", "error", err)
			}
		} else {
			e.sink.Abort()
		}
	}

	if e.hidden {
		e.s.deps.Visibility.SetOverlaysHidden(false)
		e.hidden = false
	}
	if e.release != nil {
		e.release()
		e.release = nil
	}
}
