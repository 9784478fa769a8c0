package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kartoza/kartoza-mockup-recorder/internal/ffmpeg"
)

var (
	// ErrEncoderOpen is returned when a sink cannot be started
	ErrEncoderOpen = errors.New("failed to open encoder")
	// ErrEncoderWrite is returned when a frame cannot be handed to the encoder
	ErrEncoderWrite = errors.New("failed to write frame to encoder")
)

const (
	chunkSize  = 64 * 1024
	abortGrace = time.Second
)

// Sink consumes composition frames and emits encoded chunks in order
type Sink interface {
	// WriteFrame consumes frame before returning; the caller may reuse it
	WriteFrame(frame *image.RGBA) error
	// Close flushes the encoder. Every chunk has been delivered when it returns.
	Close() error
	// Abort stops the encoder and discards pending output
	Abort()
}

// Options configure a sink
type Options struct {
	Width      int
	Height     int
	FPS        int
	MaxBitrate int
	Format     Format
	// OnChunk receives encoded data in emission order, never empty
	OnChunk func([]byte)
}

// Opener starts sinks
type Opener interface {
	Open(ctx context.Context, opts Options) (Sink, error)
}

// Bitrate caps the pixel-derived bitrate at max
func Bitrate(width, height, max int) int {
	b := width * height * 2
	if max > 0 && b > max {
		return max
	}
	return b
}

// FFmpegOpener starts an ffmpeg process per export
type FFmpegOpener struct{}

// Open implements Opener
func (FFmpegOpener) Open(ctx context.Context, opts Options) (Sink, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d at %d fps", ErrEncoderOpen, opts.Width, opts.Height, opts.FPS)
	}
	if opts.Format.Encoder == "" {
		return nil, fmt.Errorf("%w: no format negotiated", ErrEncoderOpen)
	}
	return startProcess(ctx, ffmpeg.FFmpeg, encoderArgs(opts), opts.Width, opts.Height, opts.OnChunk)
}

func encoderArgs(opts Options) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.Itoa(opts.FPS),
		"-i", "pipe:0",
		"-an",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", opts.Format.Encoder,
		"-b:v", strconv.Itoa(Bitrate(opts.Width, opts.Height, opts.MaxBitrate)),
		"-pix_fmt", "yuv420p",
	}

	switch opts.Format.Encoder {
	case "libvpx-vp9":
		args = append(args, "-deadline", "realtime", "-cpu-used", "8", "-row-mt", "1")
	case "libvpx":
		args = append(args, "-deadline", "realtime", "-cpu-used", "8")
	case "libsvtav1":
		args = append(args, "-preset", "10")
	case "libaom-av1":
		args = append(args, "-cpu-used", "8", "-row-mt", "1")
	case "libx264":
		args = append(args, "-preset", "veryfast")
	}

	if opts.Format.Container == "mp4" {
		// a seekable output is not available on a pipe
		args = append(args, "-movflags", "frag_keyframe+empty_moov+default_base_moof", "-f", "mp4")
	} else {
		args = append(args, "-f", opts.Format.Container)
	}
	return append(args, "pipe:1")
}

// processSink feeds raw RGBA frames to a child process on stdin and reads
// the encoded stream from its stdout
type processSink struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr *strings.Builder
	width  int
	height int

	onChunk func([]byte)
	discard atomic.Bool
	done    chan struct{}
	readErr error

	mu     sync.Mutex
	closed bool
}

func startProcess(ctx context.Context, name string, args []string, width, height int, onChunk func([]byte)) (*processSink, error) {
	pctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(pctx, name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrEncoderOpen, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrEncoderOpen, err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %s: %w", ErrEncoderOpen, name, err)
	}

	s := &processSink{
		cmd:     cmd,
		cancel:  cancel,
		stdin:   stdin,
		stderr:  &stderr,
		width:   width,
		height:  height,
		onChunk: onChunk,
		done:    make(chan struct{}),
	}
	go s.read(stdout)
	return s, nil
}

func (s *processSink) read(stdout io.Reader) {
	defer close(s.done)
	buf := make([]byte, chunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 && s.onChunk != nil && !s.discard.Load() {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onChunk(chunk)
		}
		if err != nil {
			if err != io.EOF {
				s.readErr = err
			}
			return
		}
	}
}

// WriteFrame implements Sink
func (s *processSink) WriteFrame(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: sink is closed", ErrEncoderWrite)
	}

	b := frame.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("%w: frame is %dx%d, sink expects %dx%d", ErrEncoderWrite, b.Dx(), b.Dy(), s.width, s.height)
	}

	row := 4 * s.width
	if frame.Stride == row {
		start := frame.PixOffset(b.Min.X, b.Min.Y)
		if _, err := s.stdin.Write(frame.Pix[start : start+row*s.height]); err != nil {
			return fmt.Errorf("%w: %w", ErrEncoderWrite, err)
		}
		return nil
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := frame.PixOffset(b.Min.X, y)
		if _, err := s.stdin.Write(frame.Pix[start : start+row]); err != nil {
			return fmt.Errorf("%w: %w", ErrEncoderWrite, err)
		}
	}
	return nil
}

// Close implements Sink
func (s *processSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	defer s.cancel()
	closeErr := s.stdin.Close()

	<-s.done
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %w, stderr: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	if s.readErr != nil {
		return fmt.Errorf("failed to read encoder output: %w", s.readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close encoder input: %w", closeErr)
	}
	return nil
}

// Abort implements Sink
func (s *processSink) Abort() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.discard.Store(true)
	s.stdin.Close()
	ffmpeg.Stop(s.cmd, s.done, abortGrace)
	s.cancel()
	<-s.done
	s.cmd.Wait()
}
