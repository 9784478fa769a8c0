package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DisplayServer represents the type of display server in use
type DisplayServer string

const (
	DisplayServerWayland DisplayServer = "wayland"
	DisplayServerX11     DisplayServer = "x11"
	DisplayServerUnknown DisplayServer = "unknown"
)

// Dependency represents a required external dependency
type Dependency struct {
	Name        string // Command name (e.g., "ffmpeg")
	Description string // Human-readable description
	Required    bool   // If true, exports cannot run without it
}

// CheckResult contains the result of checking a dependency
type CheckResult struct {
	Dependency Dependency
	Available  bool
	Path       string // Path to the executable if found
	Error      error  // Error if check failed
}

// DetectDisplayServer determines if running on Wayland or X11
func DetectDisplayServer() DisplayServer {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if os.Getenv("DISPLAY") != "" {
		return DisplayServerX11
	}
	return DisplayServerUnknown
}

// GetDisplayServerName returns a human-readable name for the display server
func GetDisplayServerName() string {
	switch DetectDisplayServer() {
	case DisplayServerWayland:
		return "Wayland"
	case DisplayServerX11:
		return "X11"
	default:
		return "Unknown"
	}
}

// BaseDeps lists dependencies required regardless of display server
var BaseDeps = []Dependency{
	{
		Name:        "ffmpeg",
		Description: "Video decoding and export encoding",
		Required:    true,
	},
	{
		Name:        "ffprobe",
		Description: "Video metadata extraction",
		Required:    true,
	},
}

// WaylandDeps lists the screen snapshot tool used on Wayland
var WaylandDeps = []Dependency{
	{
		Name:        "grim",
		Description: "Wayland screen snapshots for --snapshot screen",
	},
}

// X11Deps lists the screen snapshot tool used on X11
var X11Deps = []Dependency{
	{
		Name:        "import",
		Description: "ImageMagick X11 screen snapshots for --snapshot screen",
	},
}

// OptionalDeps lists optional dependencies that enhance functionality
var OptionalDeps = []Dependency{
	{
		Name:        "notify-send",
		Description: "Desktop notifications",
	},
}

// GetRequiredDeps returns the dependencies exports cannot run without
func GetRequiredDeps() []Dependency {
	deps := make([]Dependency, len(BaseDeps))
	copy(deps, BaseDeps)
	return deps
}

// GetOptionalDeps returns the optional dependencies for the current display
// server
func GetOptionalDeps() []Dependency {
	var deps []Dependency
	switch DetectDisplayServer() {
	case DisplayServerX11:
		deps = append(deps, X11Deps...)
	default:
		deps = append(deps, WaylandDeps...)
	}
	return append(deps, OptionalDeps...)
}

// SnapshotCommand returns the screen capture command for the current display
// server. The placeholders are expanded by the snapshot package.
func SnapshotCommand() []string {
	if DetectDisplayServer() == DisplayServerX11 {
		return []string{"import", "-window", "root", "-crop", "{w}x{h}+{x}+{y}", "png:-"}
	}
	return []string{"grim", "-g", "{geometry}", "-"}
}

// Check verifies if a single dependency is available
func Check(dep Dependency) CheckResult {
	result := CheckResult{Dependency: dep}

	path, err := exec.LookPath(dep.Name)
	if err != nil {
		result.Available = false
		result.Error = err
	} else {
		result.Available = true
		result.Path = path
	}

	return result
}

// CheckAll verifies all required and optional dependencies
func CheckAll() (required []CheckResult, optional []CheckResult) {
	for _, dep := range GetRequiredDeps() {
		required = append(required, Check(dep))
	}
	for _, dep := range GetOptionalDeps() {
		optional = append(optional, Check(dep))
	}
	return required, optional
}

// MissingRequired returns a list of missing required dependencies
func MissingRequired() []CheckResult {
	var missing []CheckResult
	for _, dep := range GetRequiredDeps() {
		result := Check(dep)
		if !result.Available {
			missing = append(missing, result)
		}
	}
	return missing
}

// HasAllRequired returns true if all required dependencies are available
func HasAllRequired() bool {
	return len(MissingRequired()) == 0
}

// FormatMissing returns a formatted string of missing dependencies
func FormatMissing(results []CheckResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Missing dependencies:\n\n")

	for _, r := range results {
		status := "MISSING"
		if r.Dependency.Required {
			status = "REQUIRED"
		}
		sb.WriteString(fmt.Sprintf("  • %s (%s)\n", r.Dependency.Name, status))
		sb.WriteString(fmt.Sprintf("    %s\n\n", r.Dependency.Description))
	}

	return sb.String()
}
