package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kartoza/kartoza-mockup-recorder/internal/ffmpeg"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

// stopGrace is how long a decoder gets to exit after SIGINT
const stopGrace = 2 * time.Second

// FileSource plays a video file by decoding it with ffmpeg in real time.
// The latest decoded frame is kept for sampling; older frames are dropped.
type FileSource struct {
	path   string
	meta   models.VideoMetadata
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	readiness models.Readiness
	frame     image.Image
	frames    int
	base      time.Duration
	playStart time.Time
	playing   bool
	ended     bool
	playCtx   context.Context

	decoder *decoder
}

type decoder struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

// Open probes path and returns a paused source positioned at zero
func Open(ctx context.Context, path string, logger *slog.Logger) (*FileSource, error) {
	meta, err := ffmpeg.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return NewFileSource(path, *meta, logger), nil
}

// NewFileSource creates a source from already known metadata
func NewFileSource(path string, meta models.VideoMetadata, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileSource{
		path:      path,
		meta:      meta,
		logger:    logger.With("source", path),
		now:       time.Now,
		readiness: models.HasMetadata,
	}
}

// Metadata returns the probed metadata
func (s *FileSource) Metadata() models.VideoMetadata {
	return s.meta
}

// Duration implements Source
func (s *FileSource) Duration() (time.Duration, bool) {
	if !s.meta.HasDuration() {
		return 0, false
	}
	return time.Duration(s.meta.Duration * float64(time.Second)), true
}

// NaturalSize implements Source
func (s *FileSource) NaturalSize() (int, int) {
	return s.meta.Width, s.meta.Height
}

// Readiness implements Source
func (s *FileSource) Readiness() models.Readiness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readiness
}

// CurrentFrame implements Source. Frames are never modified after being
// published, so the caller may keep reading one while decoding continues.
func (s *FileSource) CurrentFrame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Position implements Source
func (s *FileSource) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *FileSource) positionLocked() time.Duration {
	pos := s.base
	if s.playing {
		pos += s.now().Sub(s.playStart)
	}
	if d, ok := s.Duration(); ok && pos > d {
		pos = d
	}
	return pos
}

// Ended implements Source
func (s *FileSource) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return true
	}
	d, ok := s.Duration()
	return ok && s.playing && s.decoder == nil && s.positionLocked() >= d
}

// SetPosition implements Source. Playback continues from the new position
// if it was running.
func (s *FileSource) SetPosition(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	if total, ok := s.Duration(); ok && d > total {
		d = total
	}

	s.mu.Lock()
	wasPlaying := s.playing
	dec := s.detachLocked()
	s.playing = false
	s.base = d
	s.ended = false
	s.frames = 0
	s.readiness = models.HasMetadata
	s.mu.Unlock()

	dec.stop()

	if wasPlaying {
		return s.Play(s.playContext())
	}
	return nil
}

// Play implements Source
func (s *FileSource) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return nil
	}
	if s.ended {
		s.base = 0
		s.ended = false
	}

	w, h := s.NaturalSize()
	if w > 0 && h > 0 {
		dec, stdout, err := s.startDecoder(ctx, decoderArgs(s.path, s.base, false))
		if err != nil {
			return err
		}
		s.decoder = dec
		go s.decode(dec, stdout, w, h)
	}

	s.playing = true
	s.playCtx = ctx
	s.playStart = s.now()
	s.logger.Debug("playback started", "position", s.base)
	return nil
}

func (s *FileSource) playContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playCtx == nil || s.playCtx.Err() != nil {
		return context.Background()
	}
	return s.playCtx
}

// Pause implements Source
func (s *FileSource) Pause() error {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return nil
	}
	s.base = s.positionLocked()
	s.playing = false
	dec := s.detachLocked()
	s.mu.Unlock()

	dec.stop()
	s.logger.Debug("playback paused", "position", s.base)
	return nil
}

// Close stops any running decoder
func (s *FileSource) Close() error {
	return s.Pause()
}

// Sample decodes the single frame at the current position without starting
// playback
func (s *FileSource) Sample(ctx context.Context) error {
	w, h := s.NaturalSize()
	if w <= 0 || h <= 0 {
		return nil
	}

	s.mu.Lock()
	pos := s.positionLocked()
	s.mu.Unlock()

	cmd := exec.CommandContext(ctx, ffmpeg.FFmpeg, decoderArgs(s.path, pos, true)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to sample frame at %v: %w, stderr: %s", pos, err, stderr.String())
	}

	var got image.Image
	if err := readFrames(bytes.NewReader(output), w, h, func(img *image.RGBA) {
		if got == nil {
			got = img
		}
	}); err != nil {
		return err
	}
	if got == nil {
		return fmt.Errorf("no frame decoded at %v", pos)
	}

	s.mu.Lock()
	s.frame = got
	s.readiness = models.HasCurrentFrame
	s.mu.Unlock()
	return nil
}

func (s *FileSource) startDecoder(ctx context.Context, args []string) (*decoder, io.ReadCloser, error) {
	dctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(dctx, ffmpeg.FFmpeg, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &decoder{cmd: cmd, cancel: cancel, done: make(chan struct{})}, stdout, nil
}

func (s *FileSource) decode(dec *decoder, stdout io.Reader, w, h int) {
	defer close(dec.done)

	err := readFrames(stdout, w, h, func(img *image.RGBA) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.decoder != dec {
			return
		}
		s.publishLocked(img)
	})
	waitErr := dec.cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decoder != dec {
		return
	}

	// the decoder ran to completion on its own
	s.decoder = nil
	s.base = s.positionLocked()
	s.playing = false
	if s.frame != nil {
		s.readiness = models.HasCurrentFrame
	}
	if err != nil || waitErr != nil {
		s.logger.Warn("decoder stopped", "error", err, "exit", waitErr)
		return
	}
	s.ended = true
}

func (s *FileSource) publishLocked(img image.Image) {
	s.frame = img
	s.frames++
	if s.frames == 1 {
		s.readiness = models.HasCurrentFrame
	} else {
		s.readiness = models.HasEnoughData
	}
}

// detachLocked disowns the running decoder so its goroutine stops
// publishing. The caller stops it after releasing the lock.
func (s *FileSource) detachLocked() *decoder {
	dec := s.decoder
	s.decoder = nil
	return dec
}

func (d *decoder) stop() {
	if d == nil {
		return
	}
	ffmpeg.Stop(d.cmd, d.done, stopGrace)
	d.cancel()
	<-d.done
}

func decoderArgs(path string, pos time.Duration, single bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if !single {
		args = append(args, "-re")
	}
	args = append(args,
		"-ss", fmt.Sprintf("%.3f", pos.Seconds()),
		"-i", path,
		"-an",
	)
	if single {
		args = append(args, "-frames:v", "1")
	}
	return append(args, "-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1")
}

// readFrames splits a raw RGBA stream into frames. A trailing partial frame
// is discarded.
func readFrames(r io.Reader, w, h int, onFrame func(*image.RGBA)) error {
	size := w * h * 4
	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}
		onFrame(&image.RGBA{Pix: buf, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)})
	}
}
