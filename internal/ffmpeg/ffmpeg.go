// Package ffmpeg wraps the ffmpeg and ffprobe binaries used for decoding the
// source video and encoding the export.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

const (
	// FFmpeg is the encoder/decoder binary
	FFmpeg = "ffmpeg"
	// FFprobe is the metadata binary
	FFprobe = "ffprobe"
)

// ErrNoVideoStream is returned by Probe for files without a video stream
var ErrNoVideoStream = errors.New("no video streams found")

// Stop asks a running ffmpeg to finish. SIGINT lets it write a trailer;
// after grace the process is killed.
func Stop(cmd *exec.Cmd, done <-chan struct{}, grace time.Duration) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			cmd.Process.Kill()
			return
		}
	}

	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(grace):
		cmd.Process.Kill()
	}
}

// Probe returns video metadata for path
func Probe(ctx context.Context, path string) (*models.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,codec_name,bit_rate:format=duration",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	return ParseProbe(output)
}

// ParseProbe decodes ffprobe JSON output. A missing or "N/A" duration leaves
// Duration at zero, which callers treat as unknown.
func ParseProbe(output []byte) (*models.VideoMetadata, error) {
	var probeResult struct {
		Streams []struct {
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
			CodecName  string `json:"codec_name"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}

	if err := json.Unmarshal(output, &probeResult); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probeResult.Streams) == 0 {
		return nil, ErrNoVideoStream
	}

	stream := probeResult.Streams[0]
	meta := &models.VideoMetadata{
		Width:  stream.Width,
		Height: stream.Height,
		Codec:  stream.CodecName,
	}

	if stream.RFrameRate != "" {
		var num, den int
		if _, err := fmt.Sscanf(stream.RFrameRate, "%d/%d", &num, &den); err == nil && den > 0 {
			meta.FPS = float64(num) / float64(den)
		}
	}

	if probeResult.Format.Duration != "" {
		fmt.Sscanf(probeResult.Format.Duration, "%f", &meta.Duration)
	}

	if stream.BitRate != "" {
		fmt.Sscanf(stream.BitRate, "%d", &meta.Bitrate)
	}

	meta.AspectRatio = AspectRatio(stream.Width, stream.Height)
	return meta, nil
}

// AspectRatio returns a human-readable aspect ratio
func AspectRatio(width, height int) string {
	if width == 0 || height == 0 {
		return "unknown"
	}

	gcd := func(a, b int) int {
		for b != 0 {
			a, b = b, a%b
		}
		return a
	}

	g := gcd(width, height)
	ratio := float64(width) / float64(height)
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.99 && ratio < 1.01:
		return "1:1"
	default:
		return fmt.Sprintf("%d:%d", width/g, height/g)
	}
}
