package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var cutoutsCmd = &cobra.Command{
	Use:   "cutouts SBID DESTDIR",
	Short: "Download cutouts around the bright sources of a scheduling block",
	Long: `Finds the restored continuum and spectral image cubes of a scheduling
block, queries the block's continuum catalogue for components brighter than
500 mJy and downloads a cutout around each one from every cube.

With --full-files the whole image cubes are downloaded instead and the
catalogue query is skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runCutouts,
}

var cutoutsFullFiles bool

func init() {
	cutoutsCmd.Flags().BoolVar(&cutoutsFullFiles, "full-files", false, "Download the full image cubes instead of cutouts")

	rootCmd.AddCommand(cutoutsCmd)
}

func runCutouts(cmd *cobra.Command, args []string) error {
	runner, err := newRunner(cmd, args[1], 20*time.Second, 0)
	if err != nil {
		return err
	}
	if err := runner.Cutouts(cmd.Context(), workflow.CutoutsRequest{
		SBID:      args[0],
		FullFiles: cutoutsFullFiles,
	}); err != nil {
		return fmt.Errorf("cutouts for scheduling block %s failed: %w", args[0], err)
	}
	return nil
}
