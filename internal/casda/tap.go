package casda

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"casdaget/internal/votable"
)

// queryBase returns the TAP/SIA base matching the client's auth state.
func (c *Client) queryBase() string {
	if c.Authenticated() {
		return c.env.QueryBase
	}
	return c.env.AnonQueryBase
}

// SyncTAPQuery runs an ADQL query against the synchronous TAP endpoint,
// saves the VOTable response to destPath (unless empty) and returns the
// parsed document.
func (c *Client) SyncTAPQuery(ctx context.Context, query, destPath string) (*votable.Document, error) {
	params := url.Values{
		"query":   {query},
		"request": {"doQuery"},
		"lang":    {"ADQL"},
		"format":  {"votable"},
	}
	queryURL := c.queryBase() + tapSyncEndpoint + "?" + params.Encode()

	c.log.Debug().Str("adql", query).Msg("running TAP query")
	req, err := c.newRequest(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &Error{Op: "tap query", URL: queryURL, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "tap query", URL: queryURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if err := checkStatus("tap query", resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "tap query", URL: queryURL, Message: "failed to read response", Cause: err}
	}
	if destPath != "" {
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to save query result: %w", err)
		}
	}

	return c.parseQueryResult("tap query", queryURL, data)
}

// CreateTAPAsyncJob submits an ADQL query to the asynchronous TAP endpoint
// and returns the UWS job URL.
func (c *Client) CreateTAPAsyncJob(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"query":  {query},
		"lang":   {"ADQL"},
		"format": {"votable"},
	}
	asyncURL := c.queryBase() + tapAsyncEndpoint + "?" + params.Encode()

	c.log.Debug().Str("adql", query).Msg("creating async TAP job")
	req, err := c.newRequest(ctx, http.MethodPost, asyncURL, nil)
	if err != nil {
		return "", &Error{Op: "tap async", URL: asyncURL, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "tap async", URL: asyncURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if err := checkStatus("tap async", resp); err != nil {
		return "", err
	}

	// The service redirects to the job document; the URL we end up on is
	// the job location.
	return resp.Request.URL.String(), nil
}

// AsyncTAPQuery runs an ADQL query through the asynchronous TAP endpoint:
// create the job, run it to completion, download the result file into
// destDir and return the parsed document.
func (c *Client) AsyncTAPQuery(ctx context.Context, query, destDir string, pollInterval time.Duration) (*votable.Document, error) {
	jobURL, err := c.CreateTAPAsyncJob(ctx, query)
	if err != nil {
		return nil, err
	}

	job, err := c.RunJob(ctx, jobURL, pollInterval)
	if err != nil {
		return nil, err
	}
	if job.Phase.Failed() {
		return nil, &Error{
			Op:      "tap async",
			URL:     jobURL,
			Message: fmt.Sprintf("query job ended in %s: %s", job.Phase, job.ErrorMessage()),
		}
	}

	urls := job.ResultURLs()
	if len(urls) == 0 {
		return nil, &Error{Op: "tap async", URL: jobURL, Message: "completed query job has no result file"}
	}
	path, err := c.DownloadResult(ctx, urls[0], destDir, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch query result: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query result: %w", err)
	}
	return c.parseQueryResult("tap async", jobURL, data)
}

// parseQueryResult decodes a TAP response body and surfaces a service-side
// query rejection as an error.
func (c *Client) parseQueryResult(op, queryURL string, data []byte) (*votable.Document, error) {
	doc, err := votable.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Op: op, URL: queryURL, Message: "malformed query result", Cause: err}
	}
	if status, message, ok := doc.QueryStatus(); ok && status == "ERROR" {
		return nil, &Error{Op: op, URL: queryURL, Message: "query rejected: " + strings.TrimSpace(message)}
	}
	return doc, nil
}
