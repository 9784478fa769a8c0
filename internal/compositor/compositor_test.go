package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

type fakeFrames struct {
	readiness models.Readiness
	w, h      int
	frame     image.Image
}

func (f *fakeFrames) Readiness() models.Readiness { return f.readiness }
func (f *fakeFrames) NaturalSize() (int, int)     { return f.w, f.h }
func (f *fakeFrames) CurrentFrame() image.Image   { return f.frame }

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func scenarioClip() models.ClipGeometry {
	return models.ClipGeometry{X: 20, Y: 15, Width: 360, Height: 770, CornerRadius: 50}
}

func TestFitCover_Scenario(t *testing.T) {
	p, err := FitCover(scenarioClip(), 640, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantScale := 770.0 / 480.0
	if math.Abs(p.Scale-wantScale) > 1e-9 {
		t.Errorf("expected scale %v, got %v", wantScale, p.Scale)
	}
	if math.Abs(p.Scale-1.604) > 0.001 {
		t.Errorf("expected scale ~1.604, got %v", p.Scale)
	}

	wantW := 640 * wantScale
	if math.Abs(p.Width-wantW) > 1e-9 || math.Abs(p.Height-770) > 1e-9 {
		t.Errorf("expected %vx770, got %vx%v", wantW, p.Width, p.Height)
	}

	wantX := 20 + (360-wantW)/2
	if math.Abs(p.X-wantX) > 1e-9 {
		t.Errorf("expected x %v, got %v", wantX, p.X)
	}
	if math.Abs(p.Y-15) > 1e-9 {
		t.Errorf("expected y 15, got %v", p.Y)
	}
}

func TestFitCover_Errors(t *testing.T) {
	tests := []struct {
		name string
		clip models.ClipGeometry
		w, h int
	}{
		{"nan width", models.ClipGeometry{X: 0, Y: 0, Width: math.NaN(), Height: 10}, 10, 10},
		{"inf x", models.ClipGeometry{X: math.Inf(1), Y: 0, Width: 10, Height: 10}, 10, 10},
		{"zero height", models.ClipGeometry{Width: 10, Height: 0}, 10, 10},
		{"zero source", models.ClipGeometry{Width: 10, Height: 10}, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitCover(tt.clip, tt.w, tt.h)
			if !errors.Is(err, ErrCompositing) {
				t.Errorf("expected ErrCompositing, got %v", err)
			}
		})
	}
}

func TestCropFor_KeepsClipAspect(t *testing.T) {
	clip := scenarioClip()
	p, _ := FitCover(clip, 640, 480)
	crop := CropFor(clip, p, 640, 480)

	if crop.Dy() != 480 {
		t.Errorf("expected full source height, got %d", crop.Dy())
	}
	wantW := 360 / p.Scale
	if math.Abs(float64(crop.Dx())-wantW) > 2 {
		t.Errorf("expected crop width ~%v, got %d", wantW, crop.Dx())
	}
	center := (crop.Min.X + crop.Max.X) / 2
	if center < 318 || center > 322 {
		t.Errorf("expected crop centered on 320, got %d", center)
	}
}

func TestCompose_Scenario(t *testing.T) {
	c, err := New(400, 800, nil)
	if err != nil {
		t.Fatalf("failed to create compositor: %v", err)
	}

	bg := solid(400, 800, red)
	src := &fakeFrames{readiness: models.HasEnoughData, w: 640, h: 480, frame: solid(640, 480, blue)}

	if err := c.Compose(bg, src, scenarioClip()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := c.Surface()
	if got := s.RGBAAt(200, 400); got.B < 250 || got.R > 5 {
		t.Errorf("expected media colour at clip center, got %v", got)
	}
	if got := s.RGBAAt(20, 15); got != red {
		t.Errorf("expected rounded corner to show background, got %v", got)
	}
	if got := s.RGBAAt(5, 5); got != red {
		t.Errorf("expected background outside the clip, got %v", got)
	}
	if got := s.RGBAAt(200, 15); got.B < 250 {
		t.Errorf("expected media on the straight top edge, got %v", got)
	}

	if _, ok := c.Placement(); !ok {
		t.Error("expected cached placement after compose")
	}
}

func TestCompose_ZeroNaturalSizeMatchesBackgroundOnly(t *testing.T) {
	bg := solid(100, 200, red)
	clip := models.ClipGeometry{X: 10, Y: 10, Width: 80, Height: 180, CornerRadius: 12}

	want, _ := New(100, 200, nil)
	if err := want.Compose(bg, nil, clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		src  *fakeFrames
	}{
		{"zero width", &fakeFrames{readiness: models.HasEnoughData, w: 0, h: 480, frame: solid(4, 4, blue)}},
		{"zero height", &fakeFrames{readiness: models.HasEnoughData, w: 640, h: 0, frame: solid(4, 4, blue)}},
		{"metadata only", &fakeFrames{readiness: models.HasMetadata, w: 640, h: 480, frame: solid(4, 4, blue)}},
		{"no frame", &fakeFrames{readiness: models.HasEnoughData, w: 640, h: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := New(100, 200, nil)
			if err := got.Compose(bg, tt.src, clip); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got.Surface().Pix, want.Surface().Pix) {
				t.Error("expected background-only frame")
			}
		})
	}
}

func TestCompose_FallbackFill(t *testing.T) {
	c, _ := New(10, 10, color.White)
	if err := c.Compose(nil, nil, models.ClipGeometry{Width: 10, Height: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Surface().RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("expected white fallback, got %v", got)
	}
}

func TestCompose_InvalidGeometryKeepsBackground(t *testing.T) {
	c, _ := New(50, 50, nil)
	bg := solid(50, 50, red)
	src := &fakeFrames{readiness: models.HasEnoughData, w: 10, h: 10, frame: solid(10, 10, blue)}

	err := c.Compose(bg, src, models.ClipGeometry{X: math.NaN(), Width: 10, Height: 10})
	if !errors.Is(err, ErrCompositing) {
		t.Fatalf("expected ErrCompositing, got %v", err)
	}
	if got := c.Surface().RGBAAt(25, 25); got != red {
		t.Errorf("expected background to be drawn, got %v", got)
	}
}

func TestCompose_Deterministic(t *testing.T) {
	bg := solid(60, 120, red)
	frame := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			frame.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 10), 100, 255})
		}
	}
	src := &fakeFrames{readiness: models.HasEnoughData, w: 32, h: 24, frame: frame}
	clip := models.ClipGeometry{X: 5, Y: 5, Width: 50, Height: 110, CornerRadius: 8}

	c, _ := New(60, 120, nil)
	if err := c.Compose(bg, src, clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := append([]byte(nil), c.Surface().Pix...)

	if err := c.Compose(bg, src, clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, c.Surface().Pix) {
		t.Error("expected identical pixels for identical inputs")
	}
}

func TestCompose_StretchesBackground(t *testing.T) {
	c, _ := New(40, 40, nil)
	if err := c.Compose(solid(10, 10, red), nil, models.ClipGeometry{Width: 1, Height: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Surface().RGBAAt(39, 39); got.R < 250 || got.A < 250 {
		t.Errorf("expected stretched background in the far corner, got %v", got)
	}
}

func TestNew_RejectsEmptySurface(t *testing.T) {
	if _, err := New(0, 10, nil); !errors.Is(err, ErrCompositing) {
		t.Errorf("expected ErrCompositing, got %v", err)
	}
}

func TestRoundedRect_Coverage(t *testing.T) {
	m := NewRoundedRect(image.Rect(0, 0, 100, 100), 20)

	tests := []struct {
		x, y int
		want uint8
	}{
		{0, 0, 0},
		{50, 50, 255},
		{50, 0, 255},
		{99, 99, 0},
		{150, 50, 0},
	}
	for _, tt := range tests {
		if got := m.At(tt.x, tt.y).(color.Alpha).A; got != tt.want {
			t.Errorf("At(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}

	if r := NewRoundedRect(image.Rect(0, 0, 10, 40), 50).Radius; r != 5 {
		t.Errorf("expected radius clamped to 5, got %v", r)
	}
}
