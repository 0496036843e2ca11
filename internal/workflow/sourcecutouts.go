package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/sky"
)

// SourceCutoutsRequest configures cutouts of one image at a list of source
// positions read from a file.
type SourceCutoutsRequest struct {
	ImageID    string `validate:"required"`
	SourceFile string `validate:"required"`
}

// Validate checks the request fields.
func (req *SourceCutoutsRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid source cutouts request: %w", err)
	}
	return nil
}

// SourceCutouts produces a cutout from the named image around each source
// listed in the source file. Results land in a per-image subdirectory of
// the destination.
func (r *Runner) SourceCutouts(ctx context.Context, req SourceCutoutsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	sources, err := sky.ParseSourceFile(req.SourceFile)
	if err != nil {
		return err
	}
	r.log.Info().Int("sources", len(sources)).Msg("parsed source list")
	if len(sources) == 0 {
		return fmt.Errorf("source list %s contains no sources", req.SourceFile)
	}

	destDir := filepath.Join(r.opts.DestDir, req.ImageID)
	if err := ensureDir(destDir); err != nil {
		return err
	}

	r.log.Info().Str("image", req.ImageID).Msg("retrieving image details")
	query := fmt.Sprintf("SELECT * FROM ivoa.obscore WHERE obs_publisher_did = '%s' "+
		"AND dataproduct_type = 'cube'", req.ImageID)
	doc, err := r.client.SyncTAPQuery(ctx, query, filepath.Join(destDir, req.ImageID+".xml"))
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
		r.log.Info().Str("image", req.ImageID).Msg("no image cube found for image id")
		return nil
	}

	tokens, accessURL, err := r.resolveTokens(ctx, ids, casda.CutoutService, destDir, 0)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no accessible image cubes for %s", req.ImageID)
	}

	jobURL, err := r.client.CreateSODAJob(ctx, tokens, accessURL)
	if err != nil {
		return err
	}
	if err := r.client.AddJobParams(ctx, jobURL, "pos", sky.Circles(sources, r.opts.Radius)); err != nil {
		return err
	}
	return r.runAndDownload(ctx, jobURL, destDir)
}
