package mockup

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Fill is a solid colour or a left-to-right two stop gradient
type Fill struct {
	From     colorful.Color
	To       colorful.Color
	Gradient bool
}

// Solid returns a single colour fill
func Solid(c colorful.Color) Fill {
	return Fill{From: c, To: c}
}

// ParseFill accepts "#rrggbb" or "#rrggbb:#rrggbb"
func ParseFill(s string) (Fill, error) {
	stops := strings.SplitN(strings.TrimSpace(s), ":", 2)
	from, err := colorful.Hex(stops[0])
	if err != nil {
		return Fill{}, fmt.Errorf("invalid colour %q: %w", stops[0], err)
	}
	if len(stops) == 1 {
		return Solid(from), nil
	}
	to, err := colorful.Hex(stops[1])
	if err != nil {
		return Fill{}, fmt.Errorf("invalid colour %q: %w", stops[1], err)
	}
	return Fill{From: from, To: to, Gradient: true}, nil
}

// String formats the fill the way ParseFill reads it
func (f Fill) String() string {
	if f.Gradient {
		return f.From.Hex() + ":" + f.To.Hex()
	}
	return f.From.Hex()
}

// At returns the colour at fraction t across the fill
func (f Fill) At(t float64) color.Color {
	if !f.Gradient {
		return toRGBA(f.From)
	}
	return toRGBA(f.From.BlendLab(f.To, t).Clamped())
}

// Paint fills r in dst
func (f Fill) Paint(dst draw.Image, r image.Rectangle) {
	if !f.Gradient || r.Dx() <= 1 {
		draw.Draw(dst, r, image.NewUniform(f.At(0)), image.Point{}, draw.Src)
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		t := float64(x-r.Min.X) / float64(r.Dx()-1)
		col := image.Rect(x, r.Min.Y, x+1, r.Max.Y)
		draw.Draw(dst, col, image.NewUniform(f.At(t)), image.Point{}, draw.Src)
	}
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func hexOr(s string, fallback color.RGBA) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	return toRGBA(c)
}
