package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"casdaget/internal/casda"
	"casdaget/internal/sky"
)

// projectSearchRadiusDeg is the containment cone used to find a project's
// images covering a source. ASKAP images span roughly 30 square degrees.
const projectSearchRadiusDeg = 3

// ProjectCutoutsRequest configures per-source cutouts across a project's
// continuum images. Project is a text snippet of the obs_collection name,
// such as EMU or Rapid.
type ProjectCutoutsRequest struct {
	Project    string `validate:"required"`
	SourceFile string `validate:"required"`
}

// Validate checks the request fields.
func (req *ProjectCutoutsRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid project cutouts request: %w", err)
	}
	return nil
}

// ProjectCutouts runs one cutout job per source: each source is matched
// against the project's Stokes I continuum images by sky containment, and a
// cutout is produced from every image covering it. A failing source marks
// the run failed but the remaining sources still run.
func (r *Runner) ProjectCutouts(ctx context.Context, req ProjectCutoutsRequest) error {
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

	destDir := filepath.Join(r.opts.DestDir, req.Project)
	if err := ensureDir(destDir); err != nil {
		return err
	}

	var failures *multierror.Error
	for i, src := range sources {
		num := i + 1
		r.log.Info().Int("source", num).Str("project", req.Project).Msg("retrieving image details for source")

		query := fmt.Sprintf("SELECT * FROM ivoa.obscore WHERE obs_collection LIKE '%%%s%%' "+
			"AND dataproduct_subtype = 'cont.restored.t0' AND pol_states = '/I/' "+
			"AND 1 = CONTAINS(POINT('ICRS', s_ra, s_dec), CIRCLE('ICRS',%v,%v,%d))",
			req.Project, src.RA, src.Dec, projectSearchRadiusDeg)
		doc, err := r.client.SyncTAPQuery(ctx, query, filepath.Join(destDir, req.Project+".xml"))
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
			r.log.Info().Int("source", num).Msg("no project images cover source")
			continue
		}

		tokens, _, err := r.resolveTokens(ctx, ids, casda.CutoutService, destDir, 0)
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			failures = multierror.Append(failures, fmt.Errorf("source %d: no accessible images", num))
			continue
		}

		jobURL, err := r.client.CreateSODAJob(ctx, tokens, "")
		if err != nil {
			return err
		}
		if err := r.client.AddJobParams(ctx, jobURL, "pos", []string{src.Circle(r.opts.Radius)}); err != nil {
			return err
		}
		if err := r.runAndDownload(ctx, jobURL, destDir); err != nil {
			failures = multierror.Append(failures, fmt.Errorf("source %d: %w", num, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return failures.ErrorOrNil()
}
