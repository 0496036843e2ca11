package workflow

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/sky"
)

// SIADownloadRequest configures the sky region download flow. RA and Dec
// accept decimal degrees or sexagesimal hour angle.
type SIADownloadRequest struct {
	RA  string `validate:"required"`
	Dec string `validate:"required"`
}

// Validate checks the request fields.
func (req *SIADownloadRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid sia download request: %w", err)
	}
	return nil
}

// SIADownload finds every image and cube covering a sky position and
// downloads the full files through a single retrieval job.
func (r *Runner) SIADownload(ctx context.Context, req SIADownloadRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	destDir := r.opts.DestDir
	if err := ensureDir(destDir); err != nil {
		return err
	}

	coord, err := sky.ParseCoord(req.RA, req.Dec)
	if err != nil {
		return err
	}
	pos := coord.Circle(r.opts.Radius)

	r.log.Info().Str("pos", pos).Msg("finding images and image cubes")
	doc, err := r.client.FindImages(ctx, []string{pos}, 0, destDir)
	if err != nil {
		return err
	}
	table, err := doc.FirstTable()
	if err != nil {
		return err
	}
	r.showQueryResult(table)
	ids, err := table.Column("obs_publisher_did")
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		r.log.Info().Str("pos", pos).Msg("no image cubes available in sky location")
		return nil
	}

	r.log.Info().Int("cubes", len(ids)).Msg("retrieving datalink for each image cube")
	tokens, accessURL, err := r.resolveTokens(ctx, ids, casda.AsyncService, destDir, 0)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		r.log.Info().Str("pos", pos).Msg("no accessible image cubes in sky location")
		return nil
	}

	jobURL, err := r.client.CreateSODAJob(ctx, tokens, accessURL)
	if err != nil {
		return err
	}
	return r.runAndDownload(ctx, jobURL, destDir)
}
