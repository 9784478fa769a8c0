package notify

import (
	"fmt"
	"os/exec"

	"github.com/dustin/go-humanize"
)

// Urgency levels for notifications
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

const appTitle = "Mockup Export"

// Notifier receives export lifecycle events
type Notifier interface {
	ExportStarted(profile string) error
	ExportComplete(path string, size int64) error
	ExportFailed(reason string) error
}

// Desktop sends notifications with notify-send. A missing binary is not an
// error.
type Desktop struct{}

// Silent drops every notification
type Silent struct{}

func (Silent) ExportStarted(string) error         { return nil }
func (Silent) ExportComplete(string, int64) error { return nil }
func (Silent) ExportFailed(string) error          { return nil }

// New returns a desktop notifier when enabled, otherwise a silent one
func New(enabled bool) Notifier {
	if enabled {
		return Desktop{}
	}
	return Silent{}
}

// Send sends a desktop notification using notify-send
func Send(title, body string, urgency Urgency, icon string) error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return nil
	}

	args := []string{title, body}

	if urgency != "" {
		args = append(args, "--urgency="+string(urgency))
	}

	if icon != "" {
		args = append(args, "--icon="+icon)
	}

	cmd := exec.Command("notify-send", args...)
	return cmd.Run()
}

// Info sends an informational notification
func Info(title, body string) error {
	return Send(title, body, UrgencyNormal, "video-x-generic")
}

// Error sends an error notification
func Error(title, body string) error {
	return Send(title, body, UrgencyCritical, "dialog-error")
}

// ExportStarted notifies that an export has started
func (Desktop) ExportStarted(profile string) error {
	return Info(appTitle, "Recording "+profile+" mockup...")
}

// ExportComplete notifies that the movie was saved
func (Desktop) ExportComplete(path string, size int64) error {
	return Info(appTitle+" Complete", CompleteMessage(path, size))
}

// ExportFailed notifies that the export stopped with an error
func (Desktop) ExportFailed(reason string) error {
	return Error(appTitle+" Failed", reason)
}

// CompleteMessage formats the completion body
func CompleteMessage(path string, size int64) string {
	return fmt.Sprintf("%s saved (%s)", path, humanize.Bytes(uint64(size)))
}
