package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/sky"
)

// CutoutsRequest configures the bulk cutout flow for one scheduling block.
type CutoutsRequest struct {
	SBID      string `validate:"required"`
	FullFiles bool
}

// Validate checks the request fields.
func (req *CutoutsRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid cutouts request: %w", err)
	}
	return nil
}

// Cutouts finds the image cubes of a scheduling block and produces cutouts
// around each bright continuum component found in the block's catalogue.
// With FullFiles set, the whole cubes are retrieved instead and the
// catalogue query is skipped.
func (r *Runner) Cutouts(ctx context.Context, req CutoutsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	destDir := r.opts.DestDir
	if err := ensureDir(destDir); err != nil {
		return err
	}

	r.log.Info().Str("sbid", req.SBID).Msg("finding images and image cubes for scheduling block")
	cubeQuery := fmt.Sprintf("SELECT * FROM ivoa.obscore WHERE obs_id = '%s' "+
		"AND dataproduct_type = 'cube' "+
		"AND dataproduct_subtype IN ('cont.restored.t0', 'spectral.restored.3d')", req.SBID)
	doc, err := r.client.SyncTAPQuery(ctx, cubeQuery, filepath.Join(destDir, "image_cubes_"+req.SBID+".xml"))
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

	service := casda.CutoutService
	if req.FullFiles {
		service = casda.AsyncService
	}
	r.log.Info().Int("cubes", len(ids)).Msg("retrieving datalink for each image cube")
	tokens, _, err := r.resolveTokens(ctx, ids, service, destDir, maxCubeTokens)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no accessible image cubes for scheduling block %s", req.SBID)
	}

	var pos []string
	if !req.FullFiles {
		pos, err = r.findComponents(ctx, req.SBID, destDir)
		if err != nil {
			return err
		}
		if len(pos) == 0 {
			r.log.Info().Str("sbid", req.SBID).Msg("no catalogue entries matching the criteria for scheduling block")
			return nil
		}
	}

	// Where a cutout does not overlap a cube the service produces an error
	// file instead, which can be ignored.
	jobURL, err := r.client.CreateSODAJob(ctx, tokens, "")
	if err != nil {
		return err
	}
	if err := r.client.AddJobParams(ctx, jobURL, "pos", pos); err != nil {
		return err
	}
	return r.runAndDownload(ctx, jobURL, destDir)
}

// findComponents queries the continuum catalogue for the block's bright
// components and turns each into a cutout position.
func (r *Runner) findComponents(ctx context.Context, sbid, destDir string) ([]string, error) {
	catQuery := fmt.Sprintf("SELECT * FROM casda.continuum_component WHERE first_sbid = %s AND flux_peak > 500", sbid)
	doc, err := r.client.SyncTAPQuery(ctx, catQuery, filepath.Join(destDir, "catalogue_query_"+sbid+".xml"))
	if err != nil {
		return nil, err
	}
	table, err := doc.FirstTable()
	if err != nil {
		return nil, err
	}
	r.log.Info().Int("components", len(table.Rows)).Msg("found components")

	var pos []string
	for i := range table.Rows {
		ra, err := table.FloatCell(i, "ra_deg_cont")
		if err != nil {
			return nil, err
		}
		dec, err := table.FloatCell(i, "dec_deg_cont")
		if err != nil {
			return nil, err
		}
		pos = append(pos, sky.Coord{RA: ra, Dec: dec}.Circle(r.opts.Radius))
	}
	return pos, nil
}
