package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var siaDownloadCmd = &cobra.Command{
	Use:   "sia-download RA DEC DESTDIR",
	Short: "Download every image and cube covering a sky position",
	Long: `Runs a Simple Image Access query for data products covering the given
position and downloads each one in full. RA and Dec are decimal degrees,
or hour angle when they contain ':' or 'h' (e.g. 19:39:25.02 -63:42:45.6).

The search radius defaults to 0.1 degrees and can be changed with --radius.`,
	Args: cobra.ExactArgs(3),
	RunE: runSIADownload,
}

func init() {
	rootCmd.AddCommand(siaDownloadCmd)
}

func runSIADownload(cmd *cobra.Command, args []string) error {
	runner, err := newRunner(cmd, args[2], 10*time.Second, 0)
	if err != nil {
		return err
	}
	if err := runner.SIADownload(cmd.Context(), workflow.SIADownloadRequest{
		RA:  args[0],
		Dec: args[1],
	}); err != nil {
		return fmt.Errorf("image download at %s %s failed: %w", args[0], args[1], err)
	}
	return nil
}
