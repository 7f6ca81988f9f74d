package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/mediapath"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List the folders and files of a media folder",
	Long: `List the direct sub-folders and files of a media folder.

The root lists folders only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx, cancel := getContext(cmd)
	defer cancel()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	b := browser.New(newClient(appConfig), browser.Options{InitialPath: path})
	loadErr := b.Load(ctx)
	snap := b.Snapshot()

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, folder := range snap.Folders {
		fmt.Fprintf(w, "%s/\t\t\n", mediapath.Base(folder))
	}
	for _, f := range snap.Files {
		uploaded := ""
		if f.UploadedAt != nil {
			uploaded = humanize.Time(*f.UploadedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Label, f.URL, uploaded)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if loadErr != nil {
		return errors.New(snap.Message)
	}
	if len(snap.Folders)+len(snap.Files) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "/%s is empty\n", snap.Path)
	}
	return nil
}
