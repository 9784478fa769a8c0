// Package snapshot captures the static appearance of the composition region
// once per export. The captured image becomes the background every frame is
// composited onto.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
)

// ErrSnapshotFailed wraps every capture failure
var ErrSnapshotFailed = errors.New("snapshot failed")

// Region is the on-screen area being recorded
type Region interface {
	Attached() bool
	Bounds() image.Rectangle
	// Render paints the region without the media element and returns
	// early with ctx's error once ctx is done
	Render(ctx context.Context, dst draw.Image) error
}

// Provider captures a region
type Provider interface {
	Capture(ctx context.Context, region Region) (image.Image, error)
}

func checkRegion(region Region) (image.Rectangle, error) {
	if region == nil || !region.Attached() {
		return image.Rectangle{}, fmt.Errorf("%w: region is not attached", ErrSnapshotFailed)
	}
	b := region.Bounds()
	if b.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: region has no size", ErrSnapshotFailed)
	}
	return b, nil
}

// RasterProvider renders the region in process
type RasterProvider struct {
	// Scale multiplies the output size; 0 means 1
	Scale float64
}

// Capture implements Provider. The render runs on the caller's goroutine,
// so nothing is left running once Capture returns.
func (p RasterProvider) Capture(ctx context.Context, region Region) (image.Image, error) {
	b, err := checkRegion(region)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if err := region.Render(ctx, dst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotFailed, err)
	}
	return scale(dst, p.Scale), nil
}

func scale(img image.Image, factor float64) image.Image {
	if factor <= 0 || factor == 1 {
		return img
	}
	b := img.Bounds()
	w := uint(float64(b.Dx())*factor + 0.5)
	h := uint(float64(b.Dy())*factor + 0.5)
	if w == 0 || h == 0 {
		return img
	}
	return resize.Resize(w, h, img, resize.Lanczos3)
}

// DefaultCommand captures a screen area with grim on Wayland
var DefaultCommand = []string{"grim", "-g", "{geometry}", "-"}

// CommandProvider runs an external screenshot tool that writes a PNG of the
// region to stdout. Arguments may use {x}, {y}, {w}, {h} and {geometry}
// ("x,y wxh") placeholders.
type CommandProvider struct {
	Command []string
	// Origin is the region's top-left corner on screen
	Origin image.Point
	Scale  float64
}

// Capture implements Provider
func (p CommandProvider) Capture(ctx context.Context, region Region) (image.Image, error) {
	b, err := checkRegion(region)
	if err != nil {
		return nil, err
	}

	command := p.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	args := expandArgs(command, b.Add(p.Origin))

	path, err := exec.LookPath(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %w", ErrSnapshotFailed, args[0], err)
	}

	cmd := exec.CommandContext(ctx, path, args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %w: %s", ErrSnapshotFailed, args[0], err, strings.TrimSpace(stderr.String()))
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode capture: %w", ErrSnapshotFailed, err)
	}
	return scale(img, p.Scale), nil
}

func expandArgs(command []string, r image.Rectangle) []string {
	replacer := strings.NewReplacer(
		"{geometry}", fmt.Sprintf("%d,%d %dx%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy()),
		"{x}", strconv.Itoa(r.Min.X),
		"{y}", strconv.Itoa(r.Min.Y),
		"{w}", strconv.Itoa(r.Dx()),
		"{h}", strconv.Itoa(r.Dy()),
	)
	out := make([]string, len(command))
	for i, arg := range command {
		out[i] = replacer.Replace(arg)
	}
	return out
}
