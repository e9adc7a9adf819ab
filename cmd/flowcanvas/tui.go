package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recera/flowcanvas/internal/ui"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/render"
)

func newTUICommand(g *globals) *cobra.Command {
	var boardPath string
	var themeName string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open a board in the terminal",
		Long: `Opens an interactive board viewer. The mouse drags nodes, draws connections
from node handles and rubber-bands selections; the keyboard pans and zooms.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			opts, err := boardOptions(cfg, boardPath)
			if err != nil {
				return err
			}
			if themeName == "" {
				themeName = cfg.Render.Theme
			}
			theme, err := render.ThemeByName(themeName)
			if err != nil {
				return err
			}
			// engine logs would tear the alternate screen
			debug.SetLogger(nil)

			p := tea.NewProgram(ui.NewModel(opts, theme), tea.WithAltScreen(), tea.WithMouseAllMotion())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&boardPath, "board", "", "Scenario file to load nodes and edges from")
	cmd.Flags().StringVar(&themeName, "theme", "", "Color theme: light or dark (defaults to the config)")

	return cmd
}
