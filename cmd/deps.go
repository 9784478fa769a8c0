package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kartoza/kartoza-mockup-recorder/internal/deps"
	"github.com/kartoza/kartoza-mockup-recorder/internal/encoder"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check what an export needs",
	Long: `Check the external programs an export runs and which of the configured
codecs this ffmpeg build can encode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		required, optional := deps.CheckAll()
		report := depsReport{
			display:     deps.GetDisplayServerName(),
			snapshot:    deps.SnapshotCommand(),
			required:    required,
			optional:    optional,
			preferences: cfg.Codecs,
		}
		if deps.HasAllRequired() {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			report.encoders, report.encodersErr = encoder.ListEncoders(ctx)
		}

		fmt.Println(report.render())
		return nil
	},
}

var (
	okMark      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	missingMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#E95420"))
	dimMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
)

// depsReport is everything the deps command prints, gathered up front so the
// layout can be tested without the programs installed
type depsReport struct {
	display     string
	snapshot    []string
	required    []deps.CheckResult
	optional    []deps.CheckResult
	preferences []string
	encoders    map[string]bool
	encodersErr error
}

func (r depsReport) render() string {
	var b strings.Builder

	programs := table.NewWriter()
	programs.SetStyle(table.StyleRounded)
	programs.SetTitle("Programs")
	programs.AppendHeader(table.Row{"", "Program", "Used for", "Path"})
	for _, c := range r.required {
		mark := okMark.Render("ok")
		if !c.Available {
			mark = missingMark.Render("missing")
		}
		programs.AppendRow(table.Row{mark, c.Dependency.Name, c.Dependency.Description, c.Path})
	}
	for _, c := range r.optional {
		mark := okMark.Render("ok")
		if !c.Available {
			mark = dimMark.Render("optional")
		}
		programs.AppendRow(table.Row{mark, c.Dependency.Name, c.Dependency.Description, c.Path})
	}
	b.WriteString(programs.Render())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Display server: %s, screen snapshots run %s\n\n", r.display, strings.Join(r.snapshot, " "))

	var missing []string
	for _, c := range r.required {
		if !c.Available {
			missing = append(missing, c.Dependency.Name)
		}
	}
	if len(missing) > 0 {
		b.WriteString(missingMark.Render("Exports cannot run, missing " + strings.Join(missing, ", ")))
		return b.String()
	}
	if r.encodersErr != nil {
		b.WriteString(missingMark.Render("Could not list ffmpeg encoders: " + r.encodersErr.Error()))
		return b.String()
	}

	survey := encoder.Survey(r.encoders, r.preferences)
	chosen := ""
	codecs := table.NewWriter()
	codecs.SetStyle(table.StyleRounded)
	codecs.SetTitle("Codecs in preference order")
	codecs.AppendHeader(table.Row{"", "Codec", "Encoder", "Container"})
	for _, st := range survey {
		mark := dimMark.Render("unavailable")
		switch {
		case !st.Known:
			mark = missingMark.Render("unknown")
		case st.Available() && chosen == "":
			chosen = fmt.Sprintf("%s (%s) in %s", st.Codec, st.Encoder, st.Container)
			mark = okMark.Render("selected")
		case st.Available():
			mark = okMark.Render("ok")
		}
		codecs.AppendRow(table.Row{mark, st.Codec, st.Encoder, st.Container})
	}
	b.WriteString(codecs.Render())
	b.WriteString("\n\n")

	if chosen == "" {
		b.WriteString(missingMark.Render("None of the configured codecs can be encoded, check 'codecs' in the config"))
		return b.String()
	}
	b.WriteString(okMark.Render("Exports will use " + chosen))
	return b.String()
}
