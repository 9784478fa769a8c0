package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

// FitCover scales a srcW x srcH frame so it fully covers the clip box with no
// letterboxing and centers it. The larger of the width and height scales is
// used, so the placement overflows the clip on one axis.
func FitCover(clip models.ClipGeometry, srcW, srcH int) (models.Placement, error) {
	if !clip.Valid() {
		return models.Placement{}, fmt.Errorf("%w: invalid clip %+v", ErrCompositing, clip)
	}
	if srcW <= 0 || srcH <= 0 {
		return models.Placement{}, fmt.Errorf("%w: source size %dx%d", ErrCompositing, srcW, srcH)
	}

	scale := math.Max(clip.Width/float64(srcW), clip.Height/float64(srcH))
	w := float64(srcW) * scale
	h := float64(srcH) * scale

	p := models.Placement{
		X:      clip.X + (clip.Width-w)/2,
		Y:      clip.Y + (clip.Height-h)/2,
		Width:  w,
		Height: h,
		Scale:  scale,
	}
	for _, v := range []float64{p.X, p.Y, p.Width, p.Height, p.Scale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.Placement{}, fmt.Errorf("%w: non-finite placement %+v", ErrCompositing, p)
		}
	}
	return p, nil
}

// CropFor returns the part of a srcW x srcH frame that stays visible inside
// the clip box once the placement is applied.
func CropFor(clip models.ClipGeometry, p models.Placement, srcW, srcH int) image.Rectangle {
	cw := clip.Width / p.Scale
	ch := clip.Height / p.Scale
	x0 := (float64(srcW) - cw) / 2
	y0 := (float64(srcH) - ch) / 2

	r := image.Rect(
		int(math.Floor(x0)),
		int(math.Floor(y0)),
		int(math.Ceil(x0+cw)),
		int(math.Ceil(y0+ch)),
	)
	return r.Intersect(image.Rect(0, 0, srcW, srcH))
}

// ClipRect rounds the clip box to whole surface pixels
func ClipRect(clip models.ClipGeometry) image.Rectangle {
	x := int(math.Round(clip.X))
	y := int(math.Round(clip.Y))
	return image.Rect(x, y, x+int(math.Round(clip.Width)), y+int(math.Round(clip.Height)))
}

// RoundedRect is an alpha mask covering a rectangle with rounded corners.
// Edge pixels get partial coverage.
type RoundedRect struct {
	Rect   image.Rectangle
	Radius float64
}

// NewRoundedRect clamps the radius to half the shorter side
func NewRoundedRect(r image.Rectangle, radius float64) RoundedRect {
	limit := math.Min(float64(r.Dx()), float64(r.Dy())) / 2
	if radius > limit {
		radius = limit
	}
	if radius < 0 || math.IsNaN(radius) {
		radius = 0
	}
	return RoundedRect{Rect: r, Radius: radius}
}

// ColorModel implements image.Image
func (m RoundedRect) ColorModel() color.Model { return color.AlphaModel }

// Bounds implements image.Image
func (m RoundedRect) Bounds() image.Rectangle { return m.Rect }

// At implements image.Image
func (m RoundedRect) At(x, y int) color.Color {
	return color.Alpha{A: uint8(math.Round(m.coverage(x, y) * 255))}
}

func (m RoundedRect) coverage(x, y int) float64 {
	if !(image.Point{X: x, Y: y}).In(m.Rect) {
		return 0
	}
	if m.Radius <= 0 {
		return 1
	}

	px := float64(x) + 0.5
	py := float64(y) + 0.5
	left := float64(m.Rect.Min.X) + m.Radius
	right := float64(m.Rect.Max.X) - m.Radius
	top := float64(m.Rect.Min.Y) + m.Radius
	bottom := float64(m.Rect.Max.Y) - m.Radius

	var cx, cy float64
	switch {
	case px < left && py < top:
		cx, cy = left, top
	case px > right && py < top:
		cx, cy = right, top
	case px < left && py > bottom:
		cx, cy = left, bottom
	case px > right && py > bottom:
		cx, cy = right, bottom
	default:
		return 1
	}

	d := math.Hypot(px-cx, py-cy)
	return math.Max(0, math.Min(1, m.Radius+0.5-d))
}

// FillRoundedRect paints c into dst through a rounded rectangle mask
func FillRoundedRect(dst draw.Image, r image.Rectangle, radius float64, c color.Color) {
	mask := NewRoundedRect(r, radius)
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, mask, r.Min, draw.Over)
}
