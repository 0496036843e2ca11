package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var bandSliceCmd = &cobra.Command{
	Use:   "band-slice SBID DESTDIR",
	Short: "Extract a fixed wavelength band from a scheduling block's cubes",
	Long: `Finds the spectral image cubes of a scheduling block and submits a single
extraction job cutting each cube down to the wavelength range given by
--band-min and --band-max (in metres).`,
	Args: cobra.ExactArgs(2),
	RunE: runBandSlice,
}

var (
	bandSliceMin     float64
	bandSliceMax     float64
	bandSliceSubtype string
)

func init() {
	bandSliceCmd.Flags().Float64Var(&bandSliceMin, "band-min", 0, "Lower bound of the wavelength band in metres (required)")
	bandSliceCmd.Flags().Float64Var(&bandSliceMax, "band-max", 0, "Upper bound of the wavelength band in metres (required)")
	bandSliceCmd.Flags().StringVar(&bandSliceSubtype, "subtype", workflow.DefaultSubtype, "Data product subtype to slice")

	bandSliceCmd.MarkFlagRequired("band-min")
	bandSliceCmd.MarkFlagRequired("band-max")

	rootCmd.AddCommand(bandSliceCmd)
}

func runBandSlice(cmd *cobra.Command, args []string) error {
	runner, err := newRunner(cmd, args[1], 20*time.Second, 0)
	if err != nil {
		return err
	}
	if err := runner.BandSlice(cmd.Context(), workflow.BandSliceRequest{
		SBID:    args[0],
		Subtype: bandSliceSubtype,
		BandMin: bandSliceMin,
		BandMax: bandSliceMax,
	}); err != nil {
		return fmt.Errorf("band slicing for scheduling block %s failed: %w", args[0], err)
	}
	return nil
}
