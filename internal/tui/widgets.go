package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ========================================
// Brand Colors - Kartoza standard palette
// ========================================

var (
	ColorOrange   = lipgloss.Color("#DDA036") // Primary/Active
	ColorBlue     = lipgloss.Color("#569FC6") // Secondary/Links
	ColorGray     = lipgloss.Color("#9A9EA0") // Inactive/Subtle
	ColorWhite    = lipgloss.Color("#FFFFFF") // Text
	ColorDarkGray = lipgloss.Color("#3A3A3A") // Background
	ColorRed      = lipgloss.Color("#E95420") // Error/Recording
	ColorGreen    = lipgloss.Color("#4CAF50") // Success
)

// HeaderWidth is the standard width for the header
const HeaderWidth = 60

const divider = "────────────────────────────────────────────────────────────"

// HeaderState contains the dynamic state for the header
type HeaderState struct {
	IsRecording bool
	Profile     string
	Codec       string
	Elapsed     string
	BlinkOn     bool // For blinking status indicator
}

// RenderHeader renders the standard application header.
// screenTitle is the name of the current screen (e.g. "Export").
func RenderHeader(screenTitle string, state *HeaderState) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorOrange).
		Align(lipgloss.Center).
		Width(HeaderWidth)

	mottoStyle := lipgloss.NewStyle().
		Italic(true).
		Foreground(ColorGray).
		Align(lipgloss.Center).
		Width(HeaderWidth)

	dividerStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Width(HeaderWidth)

	title := titleStyle.Render("Kartoza Mockup Recorder - " + screenTitle)
	motto := mottoStyle.Render("your video, in a device")
	line := dividerStyle.Render(divider)

	if state == nil {
		return lipgloss.JoinVertical(lipgloss.Center, title, motto, line)
	}

	statusStyle := lipgloss.NewStyle().
		Foreground(ColorWhite).
		Align(lipgloss.Center).
		Width(HeaderWidth)

	recorderState := "Ready"
	stateColor := ColorGray
	if state.IsRecording {
		if state.BlinkOn {
			recorderState = "● REC"
		} else {
			recorderState = "○ REC"
		}
		stateColor = ColorRed
	}
	stateStyled := lipgloss.NewStyle().
		Foreground(stateColor).
		Bold(true).
		Render(recorderState)

	profile := state.Profile
	if profile == "" {
		profile = "iphone"
	}
	elapsed := state.Elapsed
	if elapsed == "" {
		elapsed = "00:00"
	}

	statusLine := fmt.Sprintf("Status: %s  |  Device: %s  |  %s", stateStyled, profile, elapsed)
	if state.Codec != "" {
		statusLine += "  |  " + state.Codec
	}

	return lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		motto,
		line,
		statusStyle.Render(statusLine),
		line,
	)
}

// RenderHelpFooter renders the standard help footer at the bottom of the screen
func RenderHelpFooter(helpText string, width int) string {
	helpStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)

	footerStyle := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center)

	return footerStyle.Render(helpStyle.Render(helpText))
}

// LayoutWithHeaderFooter creates a standard layout with header at top and footer at bottom
func LayoutWithHeaderFooter(header, content, footer string, width, height int) string {
	mainSection := lipgloss.JoinVertical(
		lipgloss.Center,
		header,
		"",
		content,
	)

	if width <= 0 || height <= 2 {
		return lipgloss.JoinVertical(lipgloss.Center, mainSection, "", footer)
	}

	centeredMain := lipgloss.Place(
		width,
		height-2,
		lipgloss.Center,
		lipgloss.Top,
		mainSection,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		centeredMain,
		footer,
	)
}

// Common styles

var (
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorGray)
	ValueStyle   = lipgloss.NewStyle().Foreground(ColorWhite)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
)
