// Package encoder streams composition frames into a video container.
package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kartoza/kartoza-mockup-recorder/internal/ffmpeg"
)

// ErrNoEncoder is returned when none of the preferred codecs is available
var ErrNoEncoder = errors.New("no supported video encoder available")

// Format is a negotiated codec and container pair
type Format struct {
	Codec     string `json:"codec"`
	Encoder   string `json:"encoder"`
	Container string `json:"container"`
	MIMEType  string `json:"mime_type"`
	Extension string `json:"extension"`
}

// candidate encoders per codec, best first
var codecEncoders = map[string][]string{
	"vp9":  {"libvpx-vp9"},
	"vp8":  {"libvpx"},
	"av1":  {"libsvtav1", "libaom-av1"},
	"h264": {"libx264", "libopenh264"},
}

// DefaultPreferences lists royalty-free codecs first
var DefaultPreferences = []string{"vp9", "vp8", "av1", "h264"}

func formatFor(codec, enc string) Format {
	switch codec {
	case "h264":
		return Format{Codec: codec, Encoder: enc, Container: "mp4", MIMEType: "video/mp4;codecs=avc1", Extension: "mp4"}
	default:
		return Format{Codec: codec, Encoder: enc, Container: "webm", MIMEType: "video/webm;codecs=" + codec, Extension: "webm"}
	}
}

// ParseEncoders returns the video encoder names listed by `ffmpeg -encoders`
func ParseEncoders(output string) map[string]bool {
	available := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	inList := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "---") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 || fields[0][0] != 'V' {
			continue
		}
		available[fields[1]] = true
	}
	return available
}

// Choose picks the first preferred codec with an available encoder
func Choose(available map[string]bool, preferences []string) (Format, error) {
	if len(preferences) == 0 {
		preferences = DefaultPreferences
	}
	for _, codec := range preferences {
		codec = strings.ToLower(strings.TrimSpace(codec))
		for _, enc := range codecEncoders[codec] {
			if available[enc] {
				return formatFor(codec, enc), nil
			}
		}
	}
	return Format{}, fmt.Errorf("%w (tried %s)", ErrNoEncoder, strings.Join(preferences, ", "))
}

// CodecStatus tells whether one preferred codec can be encoded here.
// Encoder is empty when none of its encoders is available.
type CodecStatus struct {
	Codec     string
	Encoder   string
	Container string
	Known     bool
}

// Available reports whether the codec has an encoder
func (c CodecStatus) Available() bool {
	return c.Encoder != ""
}

// Survey lists every preferred codec with the encoder Choose would use for it
func Survey(available map[string]bool, preferences []string) []CodecStatus {
	if len(preferences) == 0 {
		preferences = DefaultPreferences
	}
	out := make([]CodecStatus, 0, len(preferences))
	for _, codec := range preferences {
		codec = strings.ToLower(strings.TrimSpace(codec))
		encoders, known := codecEncoders[codec]
		st := CodecStatus{Codec: codec, Known: known}
		if known {
			st.Container = formatFor(codec, "").Container
		}
		for _, enc := range encoders {
			if available[enc] {
				st.Encoder = enc
				break
			}
		}
		out = append(out, st)
	}
	return out
}

// ListEncoders asks ffmpeg which video encoders it was built with
func ListEncoders(ctx context.Context) (map[string]bool, error) {
	output, err := exec.CommandContext(ctx, ffmpeg.FFmpeg, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list encoders: %w", err)
	}
	return ParseEncoders(string(output)), nil
}

// Negotiate picks a format from the encoders this ffmpeg provides
func Negotiate(ctx context.Context, preferences []string) (Format, error) {
	available, err := ListEncoders(ctx)
	if err != nil {
		return Format{}, err
	}
	return Choose(available, preferences)
}
