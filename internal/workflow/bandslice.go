package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/cube"
)

// BandSliceRequest configures the fixed-band slicing flow: every matching
// cube of the scheduling block is cut down to one wavelength range, given
// in metres.
type BandSliceRequest struct {
	SBID    string `validate:"required"`
	Subtype string
	BandMin float64 `validate:"gt=0"`
	BandMax float64 `validate:"gtfield=BandMin"`
}

// Validate checks the request fields.
func (req *BandSliceRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid band slice request: %w", err)
	}
	return nil
}

// BandSlice finds the cubes of a scheduling block and submits one job
// extracting the requested wavelength band from each of them.
func (r *Runner) BandSlice(ctx context.Context, req BandSliceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	destDir := r.opts.DestDir
	if err := ensureDir(destDir); err != nil {
		return err
	}
	subtype := req.Subtype
	if subtype == "" {
		subtype = DefaultSubtype
	}

	r.log.Info().Str("sbid", req.SBID).Str("subtype", subtype).Msg("finding image cubes for scheduling block")
	query := fmt.Sprintf("SELECT TOP 1000 * FROM ivoa.obscore WHERE obs_id='%s' "+
		"AND dataproduct_subtype='%s'", req.SBID, subtype)
	doc, err := r.client.SyncTAPQuery(ctx, query, filepath.Join(destDir, "image_cubes_"+req.SBID+".xml"))
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
		r.log.Info().Str("sbid", req.SBID).Msg("no image cubes for scheduling block")
		return nil
	}

	r.log.Info().Int("cubes", len(ids)).Msg("retrieving datalink for each image cube")
	tokens, _, err := r.resolveTokens(ctx, ids, casda.CutoutService, destDir, maxCubeTokens)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no accessible image cubes for scheduling block %s", req.SBID)
	}

	band, err := cube.Band(req.BandMin, req.BandMax)
	if err != nil {
		return err
	}
	jobURL, err := r.client.CreateSODAJob(ctx, tokens, "")
	if err != nil {
		return err
	}
	if err := r.client.AddJobParams(ctx, jobURL, "BAND", []string{band}); err != nil {
		return err
	}
	return r.runAndDownload(ctx, jobURL, destDir)
}
