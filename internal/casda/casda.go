// Package casda is a client for the CASDA archive's Virtual Observatory
// services: TAP catalogue queries, SIA2 image search, DataLink access
// resolution and SODA cutout jobs.
package casda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Service names understood by the archive's DataLink documents.
const (
	CutoutService             = "cutout_service"
	AsyncService              = "async_service"
	SpectrumGenerationService = "spectrum_generation_service"
)

// Endpoint paths, relative to the environment base URLs.
const (
	tapSyncEndpoint   = "tap/sync"
	tapAsyncEndpoint  = "tap/async"
	sia2Endpoint      = "sia2/query"
	sodaAsyncEndpoint = "data/async"
)

// Environment holds the service base URLs of one CASDA deployment. All
// bases end with a slash: endpoint paths are appended directly.
type Environment struct {
	Name          string
	QueryBase     string // authenticated VO proxy
	AnonQueryBase string // anonymous VO tools
	SodaBase      string // data access service
}

var (
	envProd = Environment{
		Name:          "prod",
		QueryBase:     "https://data.csiro.au/casda_vo_proxy/vo/",
		AnonQueryBase: "https://casda.csiro.au/casda_vo_tools/",
		SodaBase:      "https://casda.csiro.au/casda_data_access/",
	}
	envAT = Environment{
		Name:          "at",
		QueryBase:     "https://daplt.csiro.au/casda_vo_proxy/vo/",
		AnonQueryBase: "https://casda-at-app.csiro.au/casda_vo_tools/",
		SodaBase:      "https://casda-at-app.csiro.au/casda_data_access/",
	}
	envTest = Environment{
		Name:          "test",
		QueryBase:     "https://daptst.csiro.au/casda_vo_proxy/vo/",
		AnonQueryBase: "https://casda-tst-app.csiro.au/casda_vo_tools/",
		SodaBase:      "https://casda-tst-app.csiro.au/casda_data_access/",
	}
	envDev = Environment{
		Name:          "dev",
		QueryBase:     "https://dapdev.csiro.au/casda_vo_proxy/vo/",
		AnonQueryBase: "https://casda-dev-app.csiro.au/casda_vo_tools/",
		SodaBase:      "https://casda-dev-app.csiro.au/casda_data_access/",
	}
)

// EnvironmentByName returns the named archive deployment. The empty name
// selects production.
func EnvironmentByName(name string) (Environment, error) {
	switch name {
	case "", "prod":
		return envProd, nil
	case "at":
		return envAT, nil
	case "test":
		return envTest, nil
	case "dev":
		return envDev, nil
	}
	return Environment{}, fmt.Errorf("unknown environment %q (expected prod, at, test or dev)", name)
}

// Client talks to one CASDA environment, optionally authenticated.
type Client struct {
	env      Environment
	username string
	password string
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates a client for the given environment. An empty password
// leaves the client anonymous: queries then use the anonymous VO tools
// endpoints and DataLink will not grant access tokens.
func NewClient(env Environment, username, password string, log zerolog.Logger) *Client {
	return &Client{
		env:      env,
		username: username,
		password: password,
		http:     &http.Client{},
		log:      log.With().Str("component", "casda_client").Str("env", env.Name).Logger(),
	}
}

// Environment returns the deployment the client talks to.
func (c *Client) Environment() Environment {
	return c.env
}

// Authenticated reports whether the client sends credentials.
func (c *Client) Authenticated() bool {
	return c.password != ""
}

// Error represents a failed interaction with an archive service.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s: %v", e.Op, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Op, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AuthFailure reports whether the service rejected the client's credentials.
func (e *Error) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ErrNoAccess marks a data product whose DataLink response grants the user
// no access token.
var ErrNoAccess = errors.New("no authenticated access to data product")

// ErrNotFound marks a result artifact that the archive no longer serves.
var ErrNotFound = errors.New("artifact not found")

// newRequest builds a request, attaching basic auth when the client is
// authenticated.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if c.Authenticated() {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// checkStatus turns a non-2xx response into an *Error, consuming the body
// for its first line of detail.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := strings.TrimSpace(strings.SplitN(string(detail), "\n", 2)[0])
	if message == "" {
		message = resp.Status
	}
	return &Error{
		Op:         op,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// lastPathSegment returns the final non-empty path segment of a URL.
func lastPathSegment(rawURL string) string {
	trimmed := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		trimmed = u.Path
	}
	segments := strings.Split(trimmed, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			if unescaped, err := url.PathUnescape(segments[i]); err == nil {
				return unescaped
			}
			return segments[i]
		}
	}
	return ""
}
