// Package workflow provides the high-level orchestration for the archive
// retrieval flows: query the catalogue, resolve data access, submit
// extraction jobs, poll them to completion and download the results.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"casdaget/internal/casda"
	"casdaget/internal/observability"
	"casdaget/internal/uws"
	"casdaget/internal/votable"
)

// maxCubeTokens caps how many image cubes a single bulk cutout job covers.
const maxCubeTokens = 10

// Options holds the settings shared by every workflow run.
type Options struct {
	DestDir      string
	Radius       float64
	PollInterval time.Duration
	PollTimeout  time.Duration
	Quiet        bool
	Verbose      bool
}

// Runner executes workflows against one archive client. Each run is tagged
// with a fresh run id in the logs.
type Runner struct {
	client  *casda.Client
	opts    Options
	log     zerolog.Logger
	printer *observability.Printer
}

// NewRunner creates a workflow runner.
func NewRunner(client *casda.Client, opts Options, log zerolog.Logger) *Runner {
	return &Runner{
		client: client,
		opts:   opts,
		log: log.With().
			Str("component", "workflow").
			Str("run_id", uuid.NewString()).
			Logger(),
		printer: observability.NewPrinter(os.Stdout),
	}
}

// showQueryResult prints a query result summary in verbose mode.
func (r *Runner) showQueryResult(table *votable.Table) {
	if r.opts.Verbose {
		r.printer.PrintQueryResult(table)
	}
}

// ensureDir creates a destination directory if needed.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	return nil
}

// pollContext bounds a polling wait with the configured overall deadline.
// A zero timeout leaves the parent context in charge.
func (r *Runner) pollContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.PollTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.PollTimeout)
}

// resolveTokens queries DataLink for each data product and collects the
// access tokens for the named service. Products granting no access are
// skipped with a warning, so one embargoed cube does not sink the run. The
// returned access URL is the service endpoint from the last resolved
// product. maxTokens caps the collection when positive.
func (r *Runner) resolveTokens(ctx context.Context, ids []string, service, destDir string, maxTokens int) ([]string, string, error) {
	var tokens []string
	var accessURL string
	for _, id := range ids {
		if maxTokens > 0 && len(tokens) >= maxTokens {
			break
		}
		link, err := r.client.ServiceLink(ctx, id, service, destDir)
		if err != nil {
			if errors.Is(err, casda.ErrNoAccess) {
				r.log.Warn().Str("id", id).Msg("no access granted for data product, skipping")
				continue
			}
			return nil, "", err
		}
		tokens = append(tokens, link.Token)
		accessURL = link.AccessURL
	}
	return tokens, accessURL, nil
}

// runAndDownload starts a job, waits for a terminal phase and downloads the
// artifacts of a successful job into destDir. Download failures degrade the
// run to partial success rather than failing it.
func (r *Runner) runAndDownload(ctx context.Context, jobURL, destDir string) error {
	pollCtx, cancel := r.pollContext(ctx)
	defer cancel()

	job, err := r.client.RunJob(pollCtx, jobURL, r.opts.PollInterval)
	if err != nil {
		return err
	}
	r.log.Info().
		Str("job", jobURL).
		Str("phase", string(job.Phase)).
		Str("results_page", r.client.ResultsPage(jobURL)).
		Msg("job finished")
	if r.opts.Verbose {
		r.printer.PrintJob(job, r.client.ResultsPage(jobURL))
	}

	if job.Phase.Failed() {
		return fmt.Errorf("job did not complete: status was %s with error: %s", job.Phase, job.ErrorMessage())
	}
	return r.downloadResults(ctx, job, destDir)
}

// downloadResults fetches a completed job's artifacts, reporting partial
// success when some of them fail.
func (r *Runner) downloadResults(ctx context.Context, job *uws.Job, destDir string) error {
	paths, err := r.client.DownloadAll(ctx, job, destDir, r.opts.Quiet)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		r.log.Warn().Err(err).Int("downloaded", len(paths)).Msg("some artifacts failed to download")
	}
	r.log.Info().Int("files", len(paths)).Str("dir", destDir).Msg("downloads finished")
	if r.opts.Verbose {
		r.printer.PrintDownloads(paths)
	}
	return nil
}

// runJobsAndDownload starts every job up front, then watches them
// round-robin, downloading each job's artifacts as soon as it completes. A
// job ending in a failure phase fails the run but the remaining jobs still
// finish and download.
func (r *Runner) runJobsAndDownload(ctx context.Context, jobURLs []string, destDir string) error {
	for _, jobURL := range jobURLs {
		if err := r.client.StartJob(ctx, jobURL); err != nil {
			return err
		}
	}

	pollCtx, cancel := r.pollContext(ctx)
	defer cancel()

	var failures *multierror.Error
	remaining := append([]string(nil), jobURLs...)
	for len(remaining) > 0 {
		var still []string
		for _, jobURL := range remaining {
			job, err := r.client.JobDetails(pollCtx, jobURL)
			if err != nil {
				if pollCtx.Err() != nil {
					return fmt.Errorf("gave up waiting for %d jobs: %w", len(remaining), err)
				}
				r.log.Warn().Err(err).Str("job", jobURL).Msg("job status check failed, will retry")
				still = append(still, jobURL)
				continue
			}
			if !job.Phase.Terminal() {
				still = append(still, jobURL)
				continue
			}
			if r.opts.Verbose {
				r.printer.PrintJob(job, r.client.ResultsPage(jobURL))
			}
			if job.Phase.Failed() {
				r.log.Error().
					Str("job", jobURL).
					Str("phase", string(job.Phase)).
					Str("error", job.ErrorMessage()).
					Msg("job failed")
				failures = multierror.Append(failures,
					fmt.Errorf("job %s ended in %s: %s", jobURL, job.Phase, job.ErrorMessage()))
				continue
			}
			if err := r.downloadResults(ctx, job, destDir); err != nil {
				return err
			}
		}
		remaining = still
		if len(remaining) == 0 {
			break
		}
		r.log.Info().Int("jobs", len(remaining)).Dur("wait", r.opts.PollInterval).Msg("jobs still running")
		select {
		case <-pollCtx.Done():
			return fmt.Errorf("gave up waiting for %d jobs: %w", len(remaining), pollCtx.Err())
		case <-time.After(r.opts.PollInterval):
		}
	}
	return failures.ErrorOrNil()
}
