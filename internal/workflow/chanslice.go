package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"casdaget/internal/casda"
	"casdaget/internal/cube"
	"casdaget/internal/votable"
)

// DefaultSubtype is the data product subtype the slicing flows query when
// none is given.
const DefaultSubtype = "spectral.restored.3d"

// ChanSliceRequest configures the channel slicing flow: every multi-channel
// cube of the scheduling block is split into groups of NumChannels
// channels.
type ChanSliceRequest struct {
	SBID        string `validate:"required"`
	NumChannels int    `validate:"min=1"`
	Subtype     string
}

// Validate checks the request fields.
func (req *ChanSliceRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid channel slice request: %w", err)
	}
	return nil
}

// ChannelSlices finds the multi-channel cubes of a scheduling block and
// submits one slicing job per cube, each cutting the spectral axis into
// NumChannels-sized groups. The jobs run concurrently on the archive side
// and are watched round-robin; one failing job does not stop the others.
func (r *Runner) ChannelSlices(ctx context.Context, req ChanSliceRequest) error {
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

	r.log.Info().Str("sbid", req.SBID).Str("subtype", subtype).Msg("finding multi-channel cubes for scheduling block")
	query := fmt.Sprintf("SELECT TOP 1000 * FROM ivoa.obscore WHERE obs_id='%s' "+
		"AND dataproduct_subtype='%s' AND em_xel > 1 AND dataproduct_type = 'cube'", req.SBID, subtype)
	doc, err := r.client.AsyncTAPQuery(ctx, query, destDir, r.opts.PollInterval)
	if err != nil {
		return err
	}
	table, err := doc.FirstTable()
	if err != nil {
		return err
	}
	r.showQueryResult(table)
	if len(table.Rows) == 0 {
		r.log.Info().Str("sbid", req.SBID).Msg("no image cubes for scheduling block")
		return nil
	}

	var jobs []string
	totalSlices := 0
	for i := range table.Rows {
		id, err := table.Cell(i, "obs_publisher_did")
		if err != nil {
			return err
		}
		link, err := r.client.ServiceLink(ctx, id, casda.CutoutService, destDir)
		if err != nil {
			if errors.Is(err, casda.ErrNoAccess) {
				r.log.Warn().Str("id", id).Msg("no access granted for data product, skipping")
				continue
			}
			return err
		}

		info, err := cubeInfoFromRow(table, i, id)
		if err != nil {
			r.log.Warn().Err(err).Str("cube", id).Msg("skipping cube with unusable spectral metadata")
			continue
		}
		bands, err := info.SliceBands(req.NumChannels)
		if err != nil {
			r.log.Warn().Err(err).Str("cube", id).Msg("skipping cube with unusable spectral metadata")
			continue
		}
		r.log.Info().
			Str("cube", id).
			Int("channels", info.Channels).
			Int("slices", len(bands)).
			Msg("slicing cube")
		totalSlices += len(bands)

		jobURL, err := r.client.CreateSODAJob(ctx, []string{link.Token}, "")
		if err != nil {
			return err
		}
		if err := r.client.AddJobParams(ctx, jobURL, "BAND", bands); err != nil {
			return err
		}
		jobs = append(jobs, jobURL)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no accessible image cubes for scheduling block %s", req.SBID)
	}

	r.log.Info().Int("jobs", len(jobs)).Int("total_slices", totalSlices).Msg("starting slicing jobs")
	return r.runJobsAndDownload(ctx, jobs, destDir)
}

// cubeInfoFromRow reads the spectral metadata columns of one query row.
func cubeInfoFromRow(table *votable.Table, i int, id string) (*cube.Info, error) {
	channels, err := table.IntCell(i, "em_xel")
	if err != nil {
		return nil, err
	}
	emMin, err := table.FloatCell(i, "em_min")
	if err != nil {
		return nil, err
	}
	emMax, err := table.FloatCell(i, "em_max")
	if err != nil {
		return nil, err
	}
	return &cube.Info{ID: id, Channels: channels, EmMin: emMin, EmMax: emMax}, nil
}
