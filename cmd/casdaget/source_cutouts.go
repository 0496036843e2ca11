package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var sourceCutoutsCmd = &cobra.Command{
	Use:   "source-cutouts IMAGE_ID SOURCE_FILE DESTDIR",
	Short: "Download cutouts from one image around a list of sources",
	Long: `Produces a cutout from the named image around each source listed in
SOURCE_FILE. The file holds one "RA Dec" pair per line; '#' starts a
comment and coordinates containing ':' or 'h' are read as hour angle.
Cutouts are written to DESTDIR/IMAGE_ID/.`,
	Args: cobra.ExactArgs(3),
	RunE: runSourceCutouts,
}

func init() {
	rootCmd.AddCommand(sourceCutoutsCmd)
}

func runSourceCutouts(cmd *cobra.Command, args []string) error {
	runner, err := newRunner(cmd, args[2], 20*time.Second, 0)
	if err != nil {
		return err
	}
	if err := runner.SourceCutouts(cmd.Context(), workflow.SourceCutoutsRequest{
		ImageID:    args[0],
		SourceFile: args[1],
	}); err != nil {
		return fmt.Errorf("source cutouts from %s failed: %w", args[0], err)
	}
	return nil
}
