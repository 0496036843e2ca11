package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"casdaget/internal/workflow"
)

var projectCutoutsCmd = &cobra.Command{
	Use:   "project-cutouts PROJECT SOURCE_FILE RADIUS DESTDIR",
	Short: "Download cutouts from a project's images around a list of sources",
	Long: `For each source in SOURCE_FILE, finds the project's restored continuum
images covering the source and submits a cutout job with the given radius
in degrees. Cutouts are written to DESTDIR/PROJECT/. A failed job marks
the run as failed but the remaining sources are still processed.`,
	Args: cobra.ExactArgs(4),
	RunE: runProjectCutouts,
}

func init() {
	rootCmd.AddCommand(projectCutoutsCmd)
}

func runProjectCutouts(cmd *cobra.Command, args []string) error {
	radius, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("RADIUS must be a number of degrees: %w", err)
	}

	runner, err := newRunner(cmd, args[3], 20*time.Second, radius)
	if err != nil {
		return err
	}
	if err := runner.ProjectCutouts(cmd.Context(), workflow.ProjectCutoutsRequest{
		Project:    args[0],
		SourceFile: args[1],
	}); err != nil {
		return fmt.Errorf("project cutouts for %s failed: %w", args[0], err)
	}
	return nil
}
