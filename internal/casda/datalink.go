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

	"casdaget/internal/votable"
)

// authenticatedLinkDescription marks the DataLink row pointing from the
// anonymous document to its authenticated counterpart.
const authenticatedLinkDescription = "Authenticated Data Link"

// ServiceLink is the outcome of resolving a data product through DataLink:
// the SODA endpoint serving the requested service and the single-use token
// granting this user access to the product.
type ServiceLink struct {
	AccessURL string
	Token     string
}

// ServiceLink resolves DataLink for a data product and extracts the access
// details for the named service (CutoutService, AsyncService or
// SpectrumGenerationService). When the first document only carries a
// pointer to the authenticated link, that link is followed and its document
// used instead. The raw DataLink XML is saved to destDir.
//
// ErrNoAccess is returned (wrapped) when the document grants no token,
// which happens for anonymous users and embargoed data.
func (c *Client) ServiceLink(ctx context.Context, dataproductID, service, destDir string) (ServiceLink, error) {
	linkURL := c.env.QueryBase + "datalink/links?ID=" + url.QueryEscape(dataproductID)
	doc, err := c.fetchDataLink(ctx, linkURL, dataproductID, destDir)
	if err != nil {
		return ServiceLink{}, err
	}

	// An anonymous-endpoint document points at the authenticated one.
	if authURL := findAuthenticatedLink(doc); authURL != "" {
		c.log.Debug().Str("url", authURL).Msg("following authenticated data link")
		doc, err = c.fetchDataLink(ctx, authURL, dataproductID, destDir)
		if err != nil {
			return ServiceLink{}, err
		}
	}

	link := ServiceLink{
		AccessURL: findServiceAccessURL(doc, service),
		Token:     findServiceToken(doc, service),
	}
	if link.Token == "" {
		return ServiceLink{}, fmt.Errorf("data product %s, service %s: %w", dataproductID, service, ErrNoAccess)
	}
	return link, nil
}

// fetchDataLink retrieves and parses one DataLink document, saving the raw
// XML as datalink-<id>.xml in destDir.
func (c *Client) fetchDataLink(ctx context.Context, linkURL, dataproductID, destDir string) (*votable.Document, error) {
	c.log.Debug().Str("id", dataproductID).Msg("retrieving data link")
	req, err := c.newRequest(ctx, http.MethodGet, linkURL, nil)
	if err != nil {
		return nil, &Error{Op: "datalink", URL: linkURL, Message: "failed to create request", Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "datalink", URL: linkURL, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if err := checkStatus("datalink", resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "datalink", URL: linkURL, Message: "failed to read response", Cause: err}
	}
	if destDir != "" {
		path := filepath.Join(destDir, "datalink-"+dataproductID+".xml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to save datalink response: %w", err)
		}
	}

	doc, err := votable.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Op: "datalink", URL: linkURL, Message: "malformed response", Cause: err}
	}
	return doc, nil
}

// resultsTable returns the table of the "results" typed resource.
func resultsTable(doc *votable.Document) *votable.Table {
	for i := range doc.Resources {
		res := &doc.Resources[i]
		if res.Type == "results" && len(res.Tables) > 0 {
			return &res.Tables[0]
		}
	}
	return nil
}

// findAuthenticatedLink returns the access_url of the row describing the
// authenticated DataLink endpoint, or empty when the document has none.
func findAuthenticatedLink(doc *votable.Document) string {
	table := resultsTable(doc)
	if table == nil {
		return ""
	}
	for i := range table.Rows {
		description, err := table.Cell(i, "description")
		if err != nil || description != authenticatedLinkDescription {
			continue
		}
		if accessURL, err := table.Cell(i, "access_url"); err == nil {
			return accessURL
		}
	}
	return ""
}

// findServiceToken returns the authenticated id token of the row whose
// service_def matches the named service.
func findServiceToken(doc *votable.Document, service string) string {
	table := resultsTable(doc)
	if table == nil {
		return ""
	}
	for i := range table.Rows {
		serviceDef, err := table.Cell(i, "service_def")
		if err != nil || serviceDef != service {
			continue
		}
		if token, err := table.Cell(i, "authenticated_id_token"); err == nil && token != "" {
			return token
		}
	}
	return ""
}

// findServiceAccessURL returns the accessURL param of the meta resource
// describing the named service.
func findServiceAccessURL(doc *votable.Document, service string) string {
	for i := range doc.Resources {
		res := &doc.Resources[i]
		if res.Type != "meta" || res.ID != service {
			continue
		}
		if accessURL, ok := res.Param("accessURL"); ok {
			return accessURL
		}
	}
	return ""
}
