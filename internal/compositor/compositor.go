// Package compositor draws one composition frame per tick: the captured
// background snapshot with the live media frame scaled to cover a rounded
// clip box on top.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"reflect"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/nfnt/resize"
)

// ErrCompositing is returned when the clip geometry or source placement is
// not drawable. The surface still holds the background when it is returned.
var ErrCompositing = errors.New("compositing failed")

// FrameSource is the part of a media source the compositor samples
type FrameSource interface {
	Readiness() models.Readiness
	NaturalSize() (int, int)
	CurrentFrame() image.Image
}

type fitKey struct {
	clip models.ClipGeometry
	w, h int
}

// Compositor owns the composition surface. It is not safe for concurrent use;
// the recording loop calls it from a single goroutine.
type Compositor struct {
	surface  *image.RGBA
	fallback color.Color

	bgSrc    image.Image
	bgScaled image.Image

	fitValid bool
	fitKey   fitKey
	fit      models.Placement
}

// New creates a compositor with a width x height surface
func New(width, height int, fallback color.Color) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: surface size %dx%d", ErrCompositing, width, height)
	}
	if fallback == nil {
		fallback = color.White
	}
	return &Compositor{
		surface:  image.NewRGBA(image.Rect(0, 0, width, height)),
		fallback: fallback,
	}, nil
}

// Surface returns the composition frame. Its contents are replaced by the
// next Compose call, so consumers copy or use it synchronously.
func (c *Compositor) Surface() *image.RGBA {
	return c.surface
}

// Placement returns the cached cover placement, if one has been computed
func (c *Compositor) Placement() (models.Placement, bool) {
	return c.fit, c.fitValid
}

// Compose redraws the surface from the background and the current media frame
func (c *Compositor) Compose(background image.Image, src FrameSource, clip models.ClipGeometry) error {
	b := c.surface.Bounds()
	draw.Draw(c.surface, b, image.Transparent, image.Point{}, draw.Src)

	if background == nil {
		draw.Draw(c.surface, b, image.NewUniform(c.fallback), image.Point{}, draw.Src)
	} else {
		bg := c.scaledBackground(background)
		draw.Draw(c.surface, b, bg, bg.Bounds().Min, draw.Over)
	}

	if src == nil || !src.Readiness().FrameAvailable() {
		return nil
	}
	w, h := src.NaturalSize()
	if w <= 0 || h <= 0 {
		return nil
	}
	frame := src.CurrentFrame()
	if frame == nil || frame.Bounds().Empty() {
		return nil
	}

	p, err := c.placement(clip, w, h)
	if err != nil {
		return err
	}

	dst := ClipRect(clip)
	if dst.Empty() {
		return fmt.Errorf("%w: clip rounds to an empty box", ErrCompositing)
	}

	crop := cropFrame(frame, CropFor(clip, p, w, h), w, h)
	scaled := resize.Resize(uint(dst.Dx()), uint(dst.Dy()), crop, resize.Bilinear)

	mask := NewRoundedRect(dst, clip.CornerRadius)
	draw.DrawMask(c.surface, dst, scaled, scaled.Bounds().Min, mask, dst.Min, draw.Over)
	return nil
}

func (c *Compositor) placement(clip models.ClipGeometry, w, h int) (models.Placement, error) {
	key := fitKey{clip: clip, w: w, h: h}
	if c.fitValid && c.fitKey == key {
		return c.fit, nil
	}

	p, err := FitCover(clip, w, h)
	if err != nil {
		c.fitValid = false
		return models.Placement{}, err
	}
	c.fit, c.fitKey, c.fitValid = p, key, true
	return p, nil
}

// scaledBackground stretches the background to the surface once per
// background instance
func (c *Compositor) scaledBackground(bg image.Image) image.Image {
	if c.bgScaled != nil && sameImage(c.bgSrc, bg) {
		return c.bgScaled
	}

	sb := c.surface.Bounds()
	scaled := bg
	if bg.Bounds().Dx() != sb.Dx() || bg.Bounds().Dy() != sb.Dy() {
		scaled = resize.Resize(uint(sb.Dx()), uint(sb.Dy()), bg, resize.Lanczos3)
	}
	c.bgSrc, c.bgScaled = bg, scaled
	return scaled
}

// cropFrame maps a crop in natural-size coordinates onto the decoded frame,
// which may be offset or sized differently
func cropFrame(frame image.Image, crop image.Rectangle, naturalW, naturalH int) image.Image {
	fb := frame.Bounds()
	if fb.Dx() != naturalW || fb.Dy() != naturalH {
		crop = image.Rect(
			crop.Min.X*fb.Dx()/naturalW,
			crop.Min.Y*fb.Dy()/naturalH,
			crop.Max.X*fb.Dx()/naturalW,
			crop.Max.Y*fb.Dy()/naturalH,
		)
	}
	crop = crop.Add(fb.Min).Intersect(fb)

	if s, ok := frame.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return s.SubImage(crop)
	}

	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), frame, crop.Min, draw.Src)
	return out
}

func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return false
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}
