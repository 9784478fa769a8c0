package mockup

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"sync"

	"github.com/kartoza/kartoza-mockup-recorder/internal/compositor"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/nfnt/resize"
)

// ErrDetached is returned when rendering a scene that has been detached
var ErrDetached = errors.New("scene is detached")

// DefaultPadding is the margin around the device in the rendered page
const DefaultPadding = 48

// Presets mirror the colour picker palette shown beside the device
var Presets = []string{
	"#ffffff",
	"#000000",
	"#ff0000",
	"#00ff00",
	"#0000ff",
	"#ff0000:#ffff00",
	"#00ffff:#ff00ff",
	"#ff0096:#00ccff",
}

const (
	swatchSize   = 24
	swatchGap    = 8
	swatchMargin = 12
	controlGap   = 12
	controlH     = 20
)

var (
	controlTrack = color.RGBA{0x3a, 0x3a, 0x3a, 0xff}
	controlFill  = color.RGBA{0xdd, 0xa0, 0x36, 0xff}
	screenColor  = color.RGBA{A: 0xff}
)

// Options controls the page around the device
type Options struct {
	Background Fill
	// Padding defaults to DefaultPadding when zero
	Padding int
	// ScreenRadius overrides the profile screen radius when positive
	ScreenRadius float64
}

// Scene is the on-screen composition: a page filled with the background,
// the device frame and the overlays (colour palette and playback bar) that
// are hidden while an export runs.
type Scene struct {
	mu sync.RWMutex

	profile    Profile
	background Fill
	padding    int
	radius     float64
	artwork    image.Image

	attached       bool
	overlaysHidden bool
	playhead       float64
}

// NewScene lays out a page for profile
func NewScene(p Profile, opts Options) (*Scene, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &Scene{
		profile:    p,
		background: opts.Background,
		padding:    opts.Padding,
		radius:     p.CornerRadius,
		attached:   true,
	}
	if s.padding <= 0 {
		s.padding = DefaultPadding
	}
	if opts.ScreenRadius > 0 {
		s.radius = opts.ScreenRadius
	}

	if p.Artwork != "" {
		art, err := loadArtwork(p.Artwork, p.Width, p.Height)
		if err != nil {
			return nil, err
		}
		s.artwork = art
	}
	return s, nil
}

func loadArtwork(path string, w, h int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork %s: %w", path, err)
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		img = resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
	}
	return img, nil
}

// Profile returns the device profile
func (s *Scene) Profile() Profile {
	return s.profile
}

// Attached reports whether the scene can still be rendered
func (s *Scene) Attached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attached
}

// Detach marks the scene as gone; later renders fail
func (s *Scene) Detach() {
	s.mu.Lock()
	s.attached = false
	s.mu.Unlock()
}

// Bounds is the page size with its origin at 0,0
func (s *Scene) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.profile.Width+2*s.padding, s.profile.Height+2*s.padding)
}

func (s *Scene) origin() image.Point {
	return image.Pt(s.padding, s.padding)
}

// MediaRect is the device screen inside the page
func (s *Scene) MediaRect() image.Rectangle {
	return s.profile.Screen.Image(s.origin())
}

// ScreenRadius is the corner radius of the screen cutout
func (s *Scene) ScreenRadius() float64 {
	return s.radius
}

// Clip returns the screen cutout as clip geometry
func (s *Scene) Clip() models.ClipGeometry {
	r := s.MediaRect()
	return models.ClipGeometry{
		X:            float64(r.Min.X),
		Y:            float64(r.Min.Y),
		Width:        float64(r.Dx()),
		Height:       float64(r.Dy()),
		CornerRadius: s.radius,
	}
}

// SetOverlaysHidden shows or hides the palette and playback bar
func (s *Scene) SetOverlaysHidden(hidden bool) {
	s.mu.Lock()
	s.overlaysHidden = hidden
	s.mu.Unlock()
}

// OverlaysHidden reports the current overlay visibility
func (s *Scene) OverlaysHidden() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlaysHidden
}

// SetPlayhead moves the playback bar, fraction in [0,1]
func (s *Scene) SetPlayhead(fraction float64) {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	s.mu.Lock()
	s.playhead = math.Max(0, math.Min(1, fraction))
	s.mu.Unlock()
}

// SetBackground replaces the page background
func (s *Scene) SetBackground(f Fill) {
	s.mu.Lock()
	s.background = f
	s.mu.Unlock()
}

// Render paints the page into dst, everything except the video itself. The
// screen area is left black. It stops between layers once ctx is done.
func (s *Scene) Render(ctx context.Context, dst draw.Image) error {
	s.mu.RLock()
	attached, hidden, playhead, bg := s.attached, s.overlaysHidden, s.playhead, s.background
	s.mu.RUnlock()

	if !attached {
		return ErrDetached
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	page := s.Bounds().Add(dst.Bounds().Min)
	bg.Paint(dst, page)
	if err := ctx.Err(); err != nil {
		return err
	}

	origin := s.origin().Add(dst.Bounds().Min)
	s.renderDevice(dst, origin)
	if err := ctx.Err(); err != nil {
		return err
	}

	if !hidden {
		s.renderPalette(dst, page)
		s.renderControls(dst, origin, playhead)
	}
	return nil
}

func (s *Scene) renderDevice(dst draw.Image, origin image.Point) {
	p := s.profile
	screen := p.Screen.Image(origin)

	if s.artwork != nil {
		r := image.Rect(0, 0, p.Width, p.Height).Add(origin)
		draw.Draw(dst, r, s.artwork, s.artwork.Bounds().Min, draw.Over)
	} else {
		buttons := hexOr(p.ButtonColor, controlTrack)
		for _, b := range p.Buttons {
			compositor.FillRoundedRect(dst, b.Image(origin), 2, buttons)
		}
		body := p.Body.Image(origin)
		if body.Empty() {
			body = image.Rect(0, 0, p.Width, p.Height).Add(origin)
		}
		compositor.FillRoundedRect(dst, body, p.BodyRadius, hexOr(p.BodyColor, controlTrack))

		if p.Bezel > 0 {
			bezel := screen.Inset(-p.Bezel)
			compositor.FillRoundedRect(dst, bezel, s.radius+float64(p.Bezel), hexOr(p.BezelColor, screenColor))
		}
	}

	compositor.FillRoundedRect(dst, screen, s.radius, screenColor)
}

func (s *Scene) renderPalette(dst draw.Image, page image.Rectangle) {
	if s.padding < swatchSize+swatchMargin {
		return
	}
	for i, preset := range Presets {
		f, err := ParseFill(preset)
		if err != nil {
			continue
		}
		y := page.Min.Y + s.padding + i*(swatchSize+swatchGap)
		r := image.Rect(0, 0, swatchSize, swatchSize).Add(image.Pt(page.Min.X+swatchMargin, y))
		if r.Max.Y > page.Max.Y {
			return
		}
		f.Paint(dst, r)
	}
}

func (s *Scene) renderControls(dst draw.Image, origin image.Point, playhead float64) {
	if s.padding < controlGap+controlH {
		return
	}
	top := origin.Y + s.profile.Height + controlGap
	track := image.Rect(origin.X, top, origin.X+s.profile.Width, top+controlH)
	compositor.FillRoundedRect(dst, track, controlH/2, controlTrack)

	if w := int(math.Round(float64(track.Dx()) * playhead)); w > 0 {
		done := image.Rect(track.Min.X, track.Min.Y, track.Min.X+w, track.Max.Y)
		compositor.FillRoundedRect(dst, done, controlH/2, controlFill)
	}
}
