package casda

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"casdaget/internal/votable"
)

// FindImages runs an SIA2 query for images and cubes covering any of the
// given POS criteria (CIRCLE, POLYGON or RANGE). maxrec limits the number
// of records when positive. The raw response is saved to destDir.
func (c *Client) FindImages(ctx context.Context, posCriteria []string, maxrec int, destDir string) (*votable.Document, error) {
	params := url.Values{"POS": posCriteria}
	if maxrec > 0 {
		params.Set("MAXREC", strconv.Itoa(maxrec))
	}
	queryURL := c.queryBase() + sia2Endpoint + "?" + params.Encode()

	c.log.Debug().Strs("pos", posCriteria).Msg("running SIA2 query")
	req, err := c.newRequest(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &Error{Op: "sia2 query", URL: queryURL, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "sia2 query", URL: queryURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if err := checkStatus("sia2 query", resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "sia2 query", URL: queryURL, Message: "failed to read response", Cause: err}
	}
	if destDir != "" {
		path := filepath.Join(destDir, "sia-resp.xml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to save SIA2 response: %w", err)
		}
	}

	doc, err := votable.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Op: "sia2 query", URL: queryURL, Message: "malformed response", Cause: err}
	}
	return doc, nil
}
