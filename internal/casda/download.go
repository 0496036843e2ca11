package casda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"

	"casdaget/internal/uws"
)

// downloadBlockSize is the copy buffer size for streaming artifacts.
const downloadBlockSize = 64 * 1024

// DownloadResult fetches one job result artifact into destDir, returning
// the path of the saved file. The local name comes from the
// Content-Disposition header when present, else from the URL. The file is
// written under a ".part" name and renamed once complete. Wraps
// ErrNotFound when the archive no longer serves the artifact.
func (c *Client) DownloadResult(ctx context.Context, href, destDir string, quiet bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return "", &Error{Op: "download", URL: href, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "download", URL: href, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", href, ErrNotFound)
	}
	if err := checkStatus("download", resp); err != nil {
		return "", err
	}

	name := resultFileName(resp, href)
	path := filepath.Join(destDir, name)
	c.log.Info().
		Str("url", href).
		Str("file", path).
		Int64("bytes", resp.ContentLength).
		Msg("downloading")

	if err := saveStream(resp.Body, path, resp.ContentLength, name, quiet); err != nil {
		return "", &Error{Op: "download", URL: href, Message: "transfer failed", Cause: err}
	}
	return path, nil
}

// DownloadAll downloads every result of a completed job into destDir.
// Artifacts the archive no longer serves (404) are skipped with a warning.
// Other per-artifact failures are collected into the returned error while
// the remaining artifacts still download.
func (c *Client) DownloadAll(ctx context.Context, job *uws.Job, destDir string, quiet bool) ([]string, error) {
	var failures *multierror.Error
	var paths []string
	for _, href := range job.ResultURLs() {
		path, err := c.DownloadResult(ctx, href, destDir, quiet)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.log.Warn().Str("url", href).Msg("unable to download, artifact not found")
				continue
			}
			failures = multierror.Append(failures, err)
			if ctx.Err() != nil {
				break
			}
			c.log.Error().Err(err).Str("url", href).Msg("artifact download failed")
			continue
		}
		paths = append(paths, path)
	}
	return paths, failures.ErrorOrNil()
}

// resultFileName picks the local file name for a downloaded artifact.
func resultFileName(resp *http.Response, href string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if filename := params["filename"]; filename != "" {
				return filepath.Base(filename)
			}
		}
	}
	if name := lastPathSegment(href); name != "" {
		return name
	}
	return "download"
}

// saveStream copies the body to path via a temporary ".part" file, showing
// a byte progress bar unless quiet.
func saveStream(body io.Reader, path string, contentLength int64, description string, quiet bool) error {
	part := path + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if quiet {
		bar = progressbar.DefaultBytesSilent(contentLength, description)
	} else {
		bar = progressbar.DefaultBytes(contentLength, description)
	}

	buf := make([]byte, downloadBlockSize)
	_, err = io.CopyBuffer(io.MultiWriter(f, bar), body, buf)
	_ = bar.Finish()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, path)
}
