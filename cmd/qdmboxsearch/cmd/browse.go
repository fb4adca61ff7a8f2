package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jfdurocher/qdmboxsearch/internal/archive"
	"github.com/jfdurocher/qdmboxsearch/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <mbox-file>",
	Short: "Browse an mbox archive interactively",
	Long: `Browse opens a full-screen terminal UI over an mbox archive. The scan
starts immediately and the message list fills in while it runs; searching
and reading messages work against whatever has been indexed so far.

Keys:
  up/k, down/j      move the cursor
  pgup/pgdn         page up / down
  enter             open the selected message
  left/h, right/l   previous / next message in the message view
  /                 search (Tab cycles the field, Enter commits)
  c                 toggle case-sensitive matching
  o                 toggle raw HTML in the message view
  esc               close search, go back, or cancel a running scan
  q                 quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arch := archive.New(loaderOptions())
		model := tui.New(arch, tui.Options{
			Path:          args[0],
			Field:         cfg.Search.Field,
			CaseSensitive: cfg.Search.CaseSensitive,
			BodyWorkers:   cfg.Search.BodyWorkers,
			PageSize:      cfg.UI.PageSize,
			PreviewLines:  cfg.UI.PreviewLines,
			Version:       Version,
		})

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run TUI: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
