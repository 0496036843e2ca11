package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var spectraCmd = &cobra.Command{
	Use:   "spectra SOURCE_FILE RADIUS DESTDIR",
	Short: "Extract spectra at a list of source positions",
	Long: `Extracts a spectrum at each source position listed in SOURCE_FILE from
every restored spectral cube that covers it, using the given extraction
radius in degrees. All positions go into a single job and the resulting
spectra are downloaded to DESTDIR.`,
	Args: cobra.ExactArgs(3),
	RunE: runSpectra,
}

func init() {
	rootCmd.AddCommand(spectraCmd)
}

func runSpectra(cmd *cobra.Command, args []string) error {
	radius, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("RADIUS must be a number of degrees: %w", err)
	}

	runner, err := newRunner(cmd, args[2], 20*time.Second, radius)
	if err != nil {
		return err
	}
	if err := runner.Spectra(cmd.Context(), workflow.SpectraRequest{
		SourceFile: args[0],
	}); err != nil {
		return fmt.Errorf("spectrum extraction failed: %w", err)
	}
	return nil
}
