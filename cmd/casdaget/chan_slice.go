package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var chanSliceCmd = &cobra.Command{
	Use:   "chan-slice SBID NUM_CHANNELS DESTDIR",
	Short: "Slice a scheduling block's spectral cubes into channel groups",
	Long: `Finds the multi-channel spectral cubes of a scheduling block and submits
one slicing job per cube, cutting its spectral axis into groups of
NUM_CHANNELS channels. A 1024 channel cube sliced with NUM_CHANNELS=512
produces 2 output cubes. All jobs are started up front and downloaded as
each completes.`,
	Args: cobra.ExactArgs(3),
	RunE: runChanSlice,
}

var chanSliceSubtype string

func init() {
	chanSliceCmd.Flags().StringVar(&chanSliceSubtype, "subtype", workflow.DefaultSubtype, "Data product subtype to slice")

	rootCmd.AddCommand(chanSliceCmd)
}

func runChanSlice(cmd *cobra.Command, args []string) error {
	numChannels, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("NUM_CHANNELS must be an integer: %w", err)
	}

	runner, err := newRunner(cmd, args[2], 3*time.Second, 0)
	if err != nil {
		return err
	}
	if err := runner.ChannelSlices(cmd.Context(), workflow.ChanSliceRequest{
		SBID:        args[0],
		NumChannels: numChannels,
		Subtype:     chanSliceSubtype,
	}); err != nil {
		return fmt.Errorf("channel slicing for scheduling block %s failed: %w", args[0], err)
	}
	return nil
}
