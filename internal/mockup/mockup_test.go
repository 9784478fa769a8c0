package mockup

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestBuiltin_Valid(t *testing.T) {
	for _, p := range Builtin() {
		if err := p.Validate(); err != nil {
			t.Errorf("builtin profile %s invalid: %v", p.Name, err)
		}
	}
}

func TestBuiltin_IPhoneGeometry(t *testing.T) {
	p, err := NewRegistry().Lookup("iPhone")
	if err != nil {
		t.Fatalf("expected iphone profile: %v", err)
	}
	if p.Width != 385 || p.Height != 785 {
		t.Errorf("expected 385x785 canvas, got %dx%d", p.Width, p.Height)
	}
	want := Rect{X: 17, Y: 12, Width: 353, Height: 761}
	if p.Screen != want {
		t.Errorf("expected screen %+v, got %+v", want, p.Screen)
	}
	if p.CornerRadius != 52 {
		t.Errorf("expected radius 52, got %v", p.CornerRadius)
	}
}

func TestProfile_Validate(t *testing.T) {
	base := Builtin()[0]
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"no name", func(p *Profile) { p.Name = "" }},
		{"zero width", func(p *Profile) { p.Width = 0 }},
		{"screen outside", func(p *Profile) { p.Screen.Width = 1000 }},
		{"empty screen", func(p *Profile) { p.Screen.Height = 0 }},
		{"negative radius", func(p *Profile) { p.CornerRadius = -1 }},
		{"bad colour", func(p *Profile) { p.BodyColor = "silver" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRegistry_LookupSuggests(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("iphon")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
	if !strings.Contains(err.Error(), "iphone") {
		t.Errorf("expected suggestion for iphone, got %v", err)
	}

	_, err = r.Lookup("zzzzzzzz")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
	if !strings.Contains(err.Error(), "available") {
		t.Errorf("expected list of available profiles, got %v", err)
	}
}

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	data := `
[[profile]]
name = "Kiosk"
description = "Landscape kiosk"
width = 900
height = 500
corner_radius = 6
body_color = "#333333"

[profile.screen]
x = 20
y = 20
width = 860
height = 460
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}

	p, err := r.Lookup("kiosk")
	if err != nil {
		t.Fatalf("expected kiosk profile: %v", err)
	}
	if p.Screen.Width != 860 || p.CornerRadius != 6 {
		t.Errorf("unexpected kiosk profile %+v", p)
	}
	if len(r.Names()) != len(Builtin())+1 {
		t.Errorf("expected builtins plus one, got %v", r.Names())
	}
}

func TestRegistry_LoadFileMissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()

	if err := r.LoadFile(filepath.Join(dir, "missing.toml")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[[profile]]\nname = \"broken\"\nwidth = 10\nheight = 10\n"), 0644)
	if err := r.LoadFile(bad); err == nil {
		t.Error("expected error for profile without a screen")
	}

	garbage := filepath.Join(dir, "garbage.toml")
	os.WriteFile(garbage, []byte("not = [toml"), 0644)
	if err := r.LoadFile(garbage); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseFill(t *testing.T) {
	f, err := ParseFill("#ff0000")
	if err != nil || f.Gradient {
		t.Fatalf("expected solid fill, got %+v, %v", f, err)
	}
	if got := f.At(0.7); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("expected red, got %v", got)
	}

	g, err := ParseFill("#000000:#ffffff")
	if err != nil || !g.Gradient {
		t.Fatalf("expected gradient, got %+v, %v", g, err)
	}
	if g.String() != "#000000:#ffffff" {
		t.Errorf("unexpected string %q", g.String())
	}

	if _, err := ParseFill("#000000:nope"); err == nil {
		t.Error("expected error for bad second stop")
	}
	if _, err := ParseFill(""); err == nil {
		t.Error("expected error for empty fill")
	}
}

func TestFill_PaintGradientEnds(t *testing.T) {
	g, _ := ParseFill("#000000:#ffffff")
	img := image.NewRGBA(image.Rect(0, 0, 10, 2))
	g.Paint(img, img.Bounds())

	if got := img.RGBAAt(0, 0); got.R != 0 {
		t.Errorf("expected black at the left, got %v", got)
	}
	if got := img.RGBAAt(9, 1); got.R != 255 {
		t.Errorf("expected white at the right, got %v", got)
	}
}

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	p, _ := NewRegistry().Lookup("iphone")
	s, err := NewScene(p, Options{Background: Solid(colorful.Color{R: 0, G: 0, B: 1})})
	if err != nil {
		t.Fatalf("failed to create scene: %v", err)
	}
	return s
}

func TestScene_Layout(t *testing.T) {
	s := newTestScene(t)

	if got := s.Bounds(); got != image.Rect(0, 0, 385+2*DefaultPadding, 785+2*DefaultPadding) {
		t.Errorf("unexpected bounds %v", got)
	}
	want := image.Rect(17, 12, 370, 773).Add(image.Pt(DefaultPadding, DefaultPadding))
	if got := s.MediaRect(); got != want {
		t.Errorf("expected media rect %v, got %v", want, got)
	}

	clip := s.Clip()
	if clip.X != float64(want.Min.X) || clip.Width != 353 || clip.CornerRadius != 52 {
		t.Errorf("unexpected clip %+v", clip)
	}
}

func TestScene_Render(t *testing.T) {
	s := newTestScene(t)
	dst := image.NewRGBA(s.Bounds())
	if err := s.Render(context.Background(), dst); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if got := dst.RGBAAt(2, 2); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("expected background in the page corner, got %v", got)
	}
	c := s.MediaRect()
	center := image.Pt((c.Min.X+c.Max.X)/2, (c.Min.Y+c.Max.Y)/2)
	if got := dst.RGBAAt(center.X, center.Y); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("expected black screen, got %v", got)
	}
}

func TestScene_OverlaysHidden(t *testing.T) {
	s := newTestScene(t)
	swatch := image.Pt(swatchMargin+2, DefaultPadding+2)

	shown := image.NewRGBA(s.Bounds())
	s.Render(context.Background(), shown)
	if got := shown.RGBAAt(swatch.X, swatch.Y); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("expected white swatch when overlays shown, got %v", got)
	}

	s.SetOverlaysHidden(true)
	if !s.OverlaysHidden() {
		t.Fatal("expected overlays hidden")
	}
	hidden := image.NewRGBA(s.Bounds())
	s.Render(context.Background(), hidden)
	if got := hidden.RGBAAt(swatch.X, swatch.Y); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("expected background when overlays hidden, got %v", got)
	}
}

func TestScene_Detached(t *testing.T) {
	s := newTestScene(t)
	s.Detach()
	if s.Attached() {
		t.Fatal("expected detached scene")
	}
	if err := s.Render(context.Background(), image.NewRGBA(s.Bounds())); !errors.Is(err, ErrDetached) {
		t.Errorf("expected ErrDetached, got %v", err)
	}
}

func TestScene_RenderStopsOnCancel(t *testing.T) {
	s := newTestScene(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := image.NewRGBA(s.Bounds())
	if err := s.Render(ctx, dst); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := dst.RGBAAt(2, 2); got != (color.RGBA{}) {
		t.Errorf("expected nothing painted, got %v", got)
	}
}

func TestScene_ScreenRadiusOverride(t *testing.T) {
	p, _ := NewRegistry().Lookup("tablet")
	s, err := NewScene(p, Options{ScreenRadius: 20, Padding: 10})
	if err != nil {
		t.Fatal(err)
	}
	if s.ScreenRadius() != 20 {
		t.Errorf("expected radius override, got %v", s.ScreenRadius())
	}
	if s.Bounds().Dx() != 640 {
		t.Errorf("expected padding 10 on each side, got width %d", s.Bounds().Dx())
	}
}
