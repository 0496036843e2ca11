package casda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"casdaget/internal/uws"
)

// CreateSODAJob creates an async SODA job for the given access tokens and
// returns the UWS job URL. sodaURL overrides the environment's default data
// access endpoint; DataLink-provided access URLs go here.
func (c *Client) CreateSODAJob(ctx context.Context, tokens []string, sodaURL string) (string, error) {
	if len(tokens) == 0 {
		return "", fmt.Errorf("no access tokens to submit")
	}
	if sodaURL == "" {
		sodaURL = c.env.SodaBase + sodaAsyncEndpoint
	}

	params := url.Values{"ID": tokens}
	separator := "?"
	if strings.Contains(sodaURL, "?") {
		separator = "&"
	}
	createURL := sodaURL + separator + params.Encode()

	c.log.Debug().Int("tokens", len(tokens)).Str("url", sodaURL).Msg("creating SODA job")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, createURL, nil)
	if err != nil {
		return "", &Error{Op: "soda job", URL: createURL, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "soda job", URL: createURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if err := checkStatus("soda job", resp); err != nil {
		return "", err
	}

	// The service redirects to the job document; the URL we end up on is
	// the job location.
	return resp.Request.URL.String(), nil
}

// AddJobParams adds repeated values of one filter parameter (such as POS or
// BAND) to a job that has not started yet.
func (c *Client) AddJobParams(ctx context.Context, jobURL, key string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	form := url.Values{key: values}
	paramsURL := jobURL + "/parameters"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, paramsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Op: "job parameters", URL: paramsURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "job parameters", URL: paramsURL, Message: fmt.Sprintf("unable to add %s parameters", key), Cause: err}
	}
	defer resp.Body.Close()
	return checkStatus("job parameters", resp)
}

// StartJob moves the job into the RUN phase.
func (c *Client) StartJob(ctx context.Context, jobURL string) error {
	c.log.Info().Str("job", jobURL).Msg("starting retrieval job")
	form := url.Values{"phase": {"RUN"}}
	phaseURL := jobURL + "/phase"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, phaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Op: "job start", URL: phaseURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "job start", URL: phaseURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	return checkStatus("job start", resp)
}

// JobDetails fetches and parses the job's UWS document.
func (c *Client) JobDetails(ctx context.Context, jobURL string) (*uws.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return nil, &Error{Op: "job status", URL: jobURL, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "job status", URL: jobURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if err := checkStatus("job status", resp); err != nil {
		return nil, err
	}

	job, err := uws.ParseJob(resp.Body)
	if err != nil {
		return nil, &Error{Op: "job status", URL: jobURL, Message: "malformed job document", Cause: err}
	}
	return job, nil
}

// PollJob checks the job's phase every interval until it reaches a terminal
// phase. The context bounds the overall wait: give it a deadline to abandon
// jobs that never finish. Status checks that fail are retried on the same
// schedule.
func (c *Client) PollJob(ctx context.Context, jobURL string, interval time.Duration) (*uws.Job, error) {
	constRetry, err := retry.NewConstant(interval)
	if err != nil {
		return nil, fmt.Errorf("could not create poll schedule: %w", err)
	}

	var job *uws.Job
	err = retry.Do(ctx, constRetry, func(ctx context.Context) error {
		details, ferr := c.JobDetails(ctx, jobURL)
		if ferr != nil {
			c.log.Warn().Err(ferr).Msg("job status check failed, will retry")
			return retry.RetryableError(ferr)
		}
		if !details.Phase.Terminal() {
			c.log.Info().
				Str("phase", string(details.Phase)).
				Dur("wait", interval).
				Msg("job still running")
			return retry.RetryableError(fmt.Errorf("job in phase %s", details.Phase))
		}
		job = details
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gave up waiting for job %s: %w", jobURL, err)
	}
	return job, nil
}

// RunJob starts the job and waits for it to reach a terminal phase.
func (c *Client) RunJob(ctx context.Context, jobURL string, interval time.Duration) (*uws.Job, error) {
	if err := c.StartJob(ctx, jobURL); err != nil {
		return nil, err
	}
	return c.PollJob(ctx, jobURL, interval)
}

// ResultsPage returns the archive's request page for a job, where its
// progress and results can be watched in a browser.
func (c *Client) ResultsPage(jobURL string) string {
	return c.env.SodaBase + "requests/" + lastPathSegment(jobURL)
}
