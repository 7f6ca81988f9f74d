package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
	"github.com/slmtnm/s4admin/internal/tui"
)

var (
	browsePath string
	browsePick bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the media folder browser",
	Long: `Open the interactive media folder browser.

Navigate folders, upload local files, or drop image files onto the terminal
to upload them into the current folder. With --pick, choosing a file (or
finishing an upload) exits and prints the media URL.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseFlags(browseCmd)
}

func browseFlags(c *cobra.Command) {
	c.Flags().StringVarP(&browsePath, "path", "p", "", "folder to open")
	c.Flags().BoolVar(&browsePick, "pick", false, "print the URL of the chosen media and exit")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := getContext(cmd)
	defer cancel()

	b := browser.New(newClient(appConfig), browser.Options{
		InitialPath: browsePath,
		OnSelect: func(m mediaapi.Media) {
			logging.Info("media selected", logging.String("id", m.ID), logging.String("url", m.URL))
		},
	})
	defer b.Close()

	program := tea.NewProgram(tui.NewModel(ctx, b, browsePick), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if browsePick {
		if m, ok := final.(tui.Model); ok && m.Picked() != nil {
			fmt.Fprintln(cmd.OutOrStdout(), m.Picked().URL)
		}
	}
	return nil
}
