package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/thomaskoefod/conduit/internal/output"
	"github.com/thomaskoefod/conduit/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse articles in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The log would draw over the alternate screen.
			a.logger.SetOutput(io.Discard)

			md, err := output.NewMarkdown(a.cfg.UI.WordWrap, true)
			if err != nil {
				return err
			}
			p := tea.NewProgram(tui.New(cmd.Context(), a.store, md, tui.WithStoredSession(a.hadSession)),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running tui: %w", err)
			}
			return nil
		},
	}
}
