package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

var (
	uploadPath string
	uploadDrop bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files into a media folder",
	Long: `Upload local files into a media folder and print their URLs.

An upload that the server fails inside a folder is retried once at the
library root. With --drop the files are treated like a drag-and-drop: only
the first image among them is uploaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadPath, "path", "p", "", "destination folder (default: root)")
	uploadCmd.Flags().BoolVar(&uploadDrop, "drop", false, "upload only the first image, as a drop would")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := getContext(cmd)
	defer cancel()

	b := browser.New(newClient(appConfig), browser.Options{InitialPath: uploadPath})
	out := cmd.OutOrStdout()

	files := make([]mediaapi.File, 0, len(args))
	for _, arg := range args {
		f, err := mediaapi.FileFromPath(arg)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	if uploadDrop {
		media, err := b.Drop(ctx, files)
		if err != nil {
			return errors.New(b.Snapshot().Message)
		}
		fmt.Fprintln(out, media.URL)
		return nil
	}

	var failed int
	for _, f := range files {
		media, err := b.Upload(ctx, browser.SourcePicker, f)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f.Name, b.Snapshot().Message)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", f.Name, humanize.IBytes(uint64(f.Size)), media.URL)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(files))
	}
	return nil
}
