package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/sky"
)

// SpectraRequest configures spectrum extraction for a list of sources.
type SpectraRequest struct {
	SourceFile string `validate:"required"`
}

// Validate checks the request fields.
func (req *SpectraRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid spectra request: %w", err)
	}
	return nil
}

// Spectra extracts a spectrum at each source position from every restored
// spectral cube that covers it. All positions go into a single job so the
// service can batch the extraction.
func (r *Runner) Spectra(ctx context.Context, req SpectraRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	start := time.Now()

	sources, err := sky.ParseSourceFile(req.SourceFile)
	if err != nil {
		return err
	}
	r.log.Info().Int("sources", len(sources)).Msg("parsed source list")
	if len(sources) == 0 {
		return fmt.Errorf("source list %s contains no sources", req.SourceFile)
	}

	destDir := r.opts.DestDir
	if err := ensureDir(destDir); err != nil {
		return err
	}

	pos := sky.Circles(sources, r.opts.Radius)
	doc, err := r.client.FindImages(ctx, pos, 0, destDir)
	if err != nil {
		return err
	}
	table, err := doc.FirstTable()
	if err != nil {
		return err
	}
	r.showQueryResult(table)

	// SIA2 has no subtype filter, so narrow to spectral cubes here.
	var ids []string
	for i := range table.Rows {
		subtype, err := table.Cell(i, "dataproduct_subtype")
		if err != nil {
			return err
		}
		if subtype != DefaultSubtype {
			continue
		}
		id, err := table.Cell(i, "obs_publisher_did")
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		r.log.Info().Msg("no image cubes matched any of your sources")
		return nil
	}

	tokens, _, err := r.resolveTokens(ctx, ids, casda.SpectrumGenerationService, destDir, 0)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		r.log.Info().Msg("no spectrum access to the matched image cubes")
		return nil
	}

	jobURL, err := r.client.CreateSODAJob(ctx, tokens, "")
	if err != nil {
		return err
	}
	if err := r.client.AddJobParams(ctx, jobURL, "pos", pos); err != nil {
		return err
	}
	if err := r.runAndDownload(ctx, jobURL, destDir); err != nil {
		return err
	}
	r.log.Info().Dur("elapsed", time.Since(start)).Msg("spectra generation completed")
	return nil
}
