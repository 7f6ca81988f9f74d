package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/dropfolder"
)

var (
	watchPath   string
	watchSettle time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Upload images dropped into a local folder",
	Long: `Watch a local directory and upload every image file created in it into
a media folder, using the same rules as a drag-and-drop.

Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchPath, "path", "p", "", "destination folder (default: root)")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", dropfolder.DefaultSettle, "quiet time before a new file is uploaded")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := getContext(cmd)
	defer cancel()

	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	out := cmd.OutOrStdout()
	w := &dropfolder.Watcher{
		Dir:     dir,
		Browser: browser.New(newClient(appConfig), browser.Options{InitialPath: watchPath}),
		Settle:  watchSettle,
		OnResult: func(res dropfolder.Result) {
			if res.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", res.Path, res.Message)
				return
			}
			fmt.Fprintf(out, "%s\t%s\n", res.Path, res.Media.URL)
		},
	}

	fmt.Fprintf(out, "Watching %s → /%s (Ctrl+C to stop)\n", dir, watchPath)
	return w.Run(ctx)
}
