package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

// Key bindings
type keyMap struct {
	Cancel key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c", "q"),
		key.WithHelp("esc/q", "cancel export"),
	),
	Quit: key.NewBinding(
		key.WithKeys("enter", "esc", "q", "ctrl+c"),
		key.WithHelp("enter", "close"),
	),
}

// Result is the outcome of an export as seen by the UI
type Result struct {
	Artifact *models.Artifact
	Err      error
}

// ExportInfo describes the export shown in the header
type ExportInfo struct {
	Input   string
	Profile string
	Codec   string
}

// Messages
type progressMsg models.ProgressSnapshot
type doneMsg Result
type blinkMsg struct{}

// ExportModel shows the progress of one export and lets the user cancel it
type ExportModel struct {
	info     ExportInfo
	updates  <-chan models.ProgressSnapshot
	done     <-chan Result
	cancel   func()
	spinner  spinner.Model
	bar      progress.Model
	snapshot models.ProgressSnapshot
	result   *Result

	width      int
	height     int
	blinkOn    bool
	cancelling bool
}

// NewExportModel creates the export screen. cancel is called once when the
// user asks to stop; updates and done are fed by the caller.
func NewExportModel(info ExportInfo, updates <-chan models.ProgressSnapshot, done <-chan Result, cancel func()) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorOrange)

	bar := progress.New(progress.WithGradient(string(ColorOrange), string(ColorGreen)))
	bar.Width = HeaderWidth - 10

	return ExportModel{
		info:     info,
		updates:  updates,
		done:     done,
		cancel:   cancel,
		spinner:  s,
		bar:      bar,
		blinkOn:  true,
		snapshot: models.ProgressSnapshot{Phase: models.PhasePreparing},
	}
}

// Result returns the export outcome once it has arrived
func (m ExportModel) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// Init initializes the model
func (m ExportModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		blinkCmd(),
		waitForProgress(m.updates),
		waitForDone(m.done),
	)
}

func waitForProgress(ch <-chan models.ProgressSnapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(s)
	}
}

func waitForDone(ch <-chan Result) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return doneMsg(<-ch)
	}
}

func blinkCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return blinkMsg{}
	})
}

// Update handles messages
func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.result != nil {
			if key.Matches(msg, keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		if key.Matches(msg, keys.Cancel) && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case progressMsg:
		m.snapshot = models.ProgressSnapshot(msg)
		return m, waitForProgress(m.updates)

	case doneMsg:
		r := Result(msg)
		m.result = &r
		return m, tea.Quit

	case blinkMsg:
		m.blinkOn = !m.blinkOn
		return m, blinkCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the screen
func (m ExportModel) View() string {
	s := m.snapshot
	header := RenderHeader("Export", &HeaderState{
		IsRecording: s.Phase == models.PhaseRecording,
		Profile:     m.info.Profile,
		Codec:       m.info.Codec,
		Elapsed:     formatSeconds(s.ElapsedSeconds) + " / " + formatSeconds(s.TotalSeconds),
		BlinkOn:     m.blinkOn,
	})

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render("Input: ")+ValueStyle.Render(filepath.Base(m.info.Input)),
		"",
		m.bar.ViewAs(s.Percent/100),
		"",
		m.statusLine(),
	)

	help := keys.Cancel.Help()
	if m.result != nil {
		help = keys.Quit.Help()
	}
	footer := RenderHelpFooter(fmt.Sprintf("%s: %s", help.Key, help.Desc), max(m.width, HeaderWidth))

	return LayoutWithHeaderFooter(header, content, footer, m.width, m.height)
}

func (m ExportModel) statusLine() string {
	if r := m.result; r != nil {
		if r.Err != nil {
			return ErrorStyle.Render("Export failed: " + r.Err.Error())
		}
		if r.Artifact != nil {
			return SuccessStyle.Render(fmt.Sprintf("Saved %s (%s)", r.Artifact.Path, humanize.Bytes(uint64(r.Artifact.Size))))
		}
	}

	status := m.snapshot.Status
	if status == "" {
		status = string(m.snapshot.Phase)
	}
	if m.cancelling {
		status = "Cancelling..."
	}
	if m.snapshot.Phase.Active() {
		return m.spinner.View() + " " + ValueStyle.Render(status)
	}
	return ValueStyle.Render(status)
}

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Run shows the export screen until the export finishes and returns its
// outcome
func Run(m ExportModel) (Result, error) {
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return Result{}, fmt.Errorf("failed to run export UI: %w", err)
	}
	if fm, ok := final.(ExportModel); ok {
		if r, ok := fm.Result(); ok {
			return r, nil
		}
	}
	return Result{}, fmt.Errorf("export UI closed before the export finished")
}
