// Package mockup describes device frames and renders the on-screen scene the
// exporter records: background, device artwork and the screen cutout where
// the video plays.
package mockup

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
	"github.com/sajari/fuzzy"
)

// ErrUnknownProfile is returned by Lookup for names that are not registered
var ErrUnknownProfile = errors.New("unknown device profile")

// Rect is an integer box in profile canvas coordinates
type Rect struct {
	X      int `toml:"x" json:"x"`
	Y      int `toml:"y" json:"y"`
	Width  int `toml:"width" json:"width"`
	Height int `toml:"height" json:"height"`
}

// Image converts the box to an image.Rectangle offset by origin
func (r Rect) Image(origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(origin)
}

// Profile describes one device frame
type Profile struct {
	Name         string  `toml:"name" json:"name"`
	Description  string  `toml:"description" json:"description"`
	Width        int     `toml:"width" json:"width"`
	Height       int     `toml:"height" json:"height"`
	Body         Rect    `toml:"body" json:"body"`
	BodyRadius   float64 `toml:"body_radius" json:"body_radius"`
	Screen       Rect    `toml:"screen" json:"screen"`
	CornerRadius float64 `toml:"corner_radius" json:"corner_radius"`
	Bezel        int     `toml:"bezel" json:"bezel"`
	Buttons      []Rect  `toml:"buttons" json:"buttons"`
	BodyColor    string  `toml:"body_color" json:"body_color"`
	BezelColor   string  `toml:"bezel_color" json:"bezel_color"`
	ButtonColor  string  `toml:"button_color" json:"button_color"`
	// Artwork is an optional PNG drawn instead of the body, bezel and buttons
	Artwork string `toml:"artwork" json:"artwork,omitempty"`
}

// Validate checks that the screen sits inside the canvas and colours parse
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("profile %s: canvas size must be positive", p.Name)
	}
	canvas := image.Rect(0, 0, p.Width, p.Height)
	screen := p.Screen.Image(image.Point{})
	if screen.Empty() || !screen.In(canvas) {
		return fmt.Errorf("profile %s: screen %v is outside the %dx%d canvas", p.Name, screen, p.Width, p.Height)
	}
	if p.CornerRadius < 0 || p.BodyRadius < 0 || p.Bezel < 0 {
		return fmt.Errorf("profile %s: radii and bezel must not be negative", p.Name)
	}
	for _, c := range []string{p.BodyColor, p.BezelColor, p.ButtonColor} {
		if c == "" {
			continue
		}
		if _, err := colorful.Hex(c); err != nil {
			return fmt.Errorf("profile %s: invalid colour %q", p.Name, c)
		}
	}
	return nil
}

// Builtin returns the device profiles shipped with the recorder
func Builtin() []Profile {
	return []Profile{
		{
			Name:         "iphone",
			Description:  "iPhone style handset, 353x761 screen",
			Width:        385,
			Height:       785,
			Body:         Rect{X: 5, Y: 0, Width: 377, Height: 785},
			BodyRadius:   62,
			Screen:       Rect{X: 17, Y: 12, Width: 353, Height: 761},
			CornerRadius: 52,
			Bezel:        4,
			Buttons: []Rect{
				{X: 0, Y: 149, Width: 5, Height: 31},
				{X: 0, Y: 209, Width: 5, Height: 56},
				{X: 0, Y: 282, Width: 5, Height: 56},
			},
			BodyColor:   "#c3c3c3",
			BezelColor:  "#000000",
			ButtonColor: "#898989",
		},
		{
			Name:         "android",
			Description:  "Android style handset, 352x772 screen",
			Width:        380,
			Height:       800,
			Body:         Rect{X: 0, Y: 0, Width: 376, Height: 800},
			BodyRadius:   40,
			Screen:       Rect{X: 12, Y: 14, Width: 352, Height: 772},
			CornerRadius: 28,
			Bezel:        3,
			Buttons: []Rect{
				{X: 376, Y: 180, Width: 4, Height: 60},
				{X: 376, Y: 270, Width: 4, Height: 110},
			},
			BodyColor:   "#2b2b2b",
			BezelColor:  "#000000",
			ButtonColor: "#555555",
		},
		{
			Name:         "tablet",
			Description:  "Tablet in portrait, 560x800 screen",
			Width:        620,
			Height:       860,
			Body:         Rect{X: 0, Y: 0, Width: 620, Height: 860},
			BodyRadius:   36,
			Screen:       Rect{X: 30, Y: 30, Width: 560, Height: 800},
			CornerRadius: 12,
			Bezel:        2,
			BodyColor:    "#d0d0d0",
			BezelColor:   "#111111",
		},
	}
}

// Registry holds the available profiles by lower-case name
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a registry seeded with the built-in profiles
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range Builtin() {
		r.profiles[p.Name] = p
	}
	return r
}

// LoadRegistry returns the built-in profiles plus any defined in path
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadFile(path); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers p, replacing a profile with the same name
func (r *Registry) Add(p Profile) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if err := p.Validate(); err != nil {
		return err
	}
	r.profiles[p.Name] = p
	return nil
}

type profileFile struct {
	Profiles []Profile `toml:"profile"`
}

// LoadFile reads [[profile]] tables from a TOML file. A missing file is not
// an error.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read profiles: %w", err)
	}

	var file profileFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse profiles %s: %w", path, err)
	}
	for _, p := range file.Profiles {
		if err := r.Add(p); err != nil {
			return fmt.Errorf("invalid profile in %s: %w", path, err)
		}
	}
	return nil
}

// Lookup finds a profile by name. Unknown names produce ErrUnknownProfile
// with close matches in the message.
func (r *Registry) Lookup(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := r.profiles[key]; ok {
		return p, nil
	}

	if s := r.Suggest(key); len(s) > 0 {
		return Profile{}, fmt.Errorf("%w %q, did you mean %s?", ErrUnknownProfile, name, strings.Join(s, " or "))
	}
	return Profile{}, fmt.Errorf("%w %q, available: %s", ErrUnknownProfile, name, strings.Join(r.Names(), ", "))
}

// Suggest returns registered names within a couple of edits of name
func (r *Registry) Suggest(name string) []string {
	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(2)
	model.Train(r.Names())

	var out []string
	for _, s := range model.Suggestions(strings.ToLower(name), false) {
		if _, ok := r.profiles[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Names returns the registered profile names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns every registered profile sorted by name
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, name := range r.Names() {
		out = append(out, r.profiles[name])
	}
	return out
}
