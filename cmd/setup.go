package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/config"
)

var setupOutput string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a configuration file interactively",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().StringVarP(&setupOutput, "output", "o", "", "file to write (default: ~/.s4admin)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.InteractiveSetup(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("setup cancelled or failed: %w", err)
	}

	path := setupOutput
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, config.FileName)
	}

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
	return nil
}
