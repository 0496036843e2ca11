package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/cube"
)

// MassCutoutsRequest configures bulk random cutout generation from a single
// image cube, sized for load testing the cutout service.
type MassCutoutsRequest struct {
	CubeID   string `validate:"required"`
	DimsFile string
	NumSmall int `validate:"min=0"`
	NumLarge int `validate:"min=0"`
	Download bool
}

// Validate checks the request fields.
func (req *MassCutoutsRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid mass cutouts request: %w", err)
	}
	if req.NumSmall+req.NumLarge == 0 {
		return fmt.Errorf("invalid mass cutouts request: at least one cutout must be requested")
	}
	return nil
}

// MassCutouts generates random spatial and spectral cutouts from one image
// cube in a single job. The positions and bands are drawn inside the cube's
// dimensions, read from DimsFile when given. Artifacts are only downloaded
// when Download is set; the default run just measures the job.
func (r *Runner) MassCutouts(ctx context.Context, req MassCutoutsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	start := time.Now()

	var dims *cube.Dimensions
	var err error
	if req.DimsFile != "" {
		dims, err = cube.LoadDimensions(req.DimsFile)
	} else {
		dims, err = cube.DefaultDimensions()
	}
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pos, bands, err := cube.RandomCutouts(dims, req.NumSmall, req.NumLarge, rng)
	if err != nil {
		return err
	}

	destDir := r.opts.DestDir
	if err := ensureDir(destDir); err != nil {
		return err
	}

	link, err := r.client.ServiceLink(ctx, req.CubeID, casda.CutoutService, destDir)
	if err != nil {
		return err
	}

	jobURL, err := r.client.CreateSODAJob(ctx, []string{link.Token}, link.AccessURL)
	if err != nil {
		return err
	}
	if err := r.client.AddJobParams(ctx, jobURL, "POS", pos); err != nil {
		return err
	}
	if err := r.client.AddJobParams(ctx, jobURL, "BAND", bands); err != nil {
		return err
	}
	r.log.Info().Int("cutouts", len(pos)*len(bands)).Msg("job will produce cutouts")

	runStart := time.Now()
	pollCtx, cancel := r.pollContext(ctx)
	defer cancel()
	job, err := r.client.RunJob(pollCtx, jobURL, r.opts.PollInterval)
	if err != nil {
		return err
	}
	r.log.Info().
		Str("phase", string(job.Phase)).
		Dur("job_time", time.Since(runStart)).
		Msg("job finished")
	r.log.Info().Str("results_page", r.client.ResultsPage(jobURL)).Msg("inspect the job on the results page")
	if r.opts.Verbose {
		r.printer.PrintJob(job, r.client.ResultsPage(jobURL))
	}
	if job.Phase.Failed() {
		return fmt.Errorf("job did not complete: status was %s with error: %s", job.Phase, job.ErrorMessage())
	}

	if req.Download {
		if err := r.downloadResults(ctx, job, destDir); err != nil {
			return err
		}
	}
	r.log.Info().Dur("elapsed", time.Since(start)).Msg("cutout processing completed")
	return nil
}
