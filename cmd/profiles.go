package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/kartoza/kartoza-mockup-recorder/internal/config"
	"github.com/kartoza/kartoza-mockup-recorder/internal/mockup"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List device profiles",
	Long: fmt.Sprintf(`List the built-in device profiles and any defined in
%s.`, config.GetProfilesPath()),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := mockup.LoadRegistry(config.GetProfilesPath())
		if err != nil {
			return err
		}
		fmt.Println(renderProfiles(registry.Profiles()))
		return nil
	},
}

func renderProfiles(profiles []mockup.Profile) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Name", "Canvas", "Screen", "Radius", "Description"})

	for _, p := range profiles {
		tw.AppendRow(table.Row{
			p.Name,
			fmt.Sprintf("%dx%d", p.Width, p.Height),
			fmt.Sprintf("%dx%d at %d,%d", p.Screen.Width, p.Screen.Height, p.Screen.X, p.Screen.Y),
			fmt.Sprintf("%g", p.CornerRadius),
			p.Description,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}
