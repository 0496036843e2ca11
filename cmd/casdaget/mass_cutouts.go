package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var massCutoutsCmd = &cobra.Command{
	Use:   "mass-cutouts CUBE_ID DESTDIR",
	Short: "Load test the archive with many random cutouts from one cube",
	Long: `Submits a single job producing a large number of cutouts at random
positions inside one image cube, for load testing the extraction service.
Cutout positions are generated from the cube's dimensions document
(--dims-file, or a built-in default) and combined with two random
wavelength bands, so the job produces (small + large) x 2 cutouts.

The job's results page URL and timing are reported; artifacts are only
fetched when --download is set.`,
	Args: cobra.ExactArgs(2),
	RunE: runMassCutouts,
}

var (
	massCutoutsDimsFile string
	massCutoutsSmall    int
	massCutoutsLarge    int
	massCutoutsDownload bool
)

func init() {
	massCutoutsCmd.Flags().StringVar(&massCutoutsDimsFile, "dims-file", "", "JSON file describing the cube dimensions (default: built-in)")
	massCutoutsCmd.Flags().IntVarP(&massCutoutsSmall, "num-small", "s", 20, "Number of small cutouts to produce")
	massCutoutsCmd.Flags().IntVarP(&massCutoutsLarge, "num-large", "l", 20, "Number of large cutouts to produce")
	massCutoutsCmd.Flags().BoolVar(&massCutoutsDownload, "download", false, "Download the produced cutouts")

	rootCmd.AddCommand(massCutoutsCmd)
}

func runMassCutouts(cmd *cobra.Command, args []string) error {
	runner, err := newRunner(cmd, args[1], 20*time.Second, 0)
	if err != nil {
		return err
	}
	if err := runner.MassCutouts(cmd.Context(), workflow.MassCutoutsRequest{
		CubeID:   args[0],
		DimsFile: massCutoutsDimsFile,
		NumSmall: massCutoutsSmall,
		NumLarge: massCutoutsLarge,
		Download: massCutoutsDownload,
	}); err != nil {
		return fmt.Errorf("mass cutouts for %s failed: %w", args[0], err)
	}
	return nil
}
