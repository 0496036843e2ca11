package casda_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casdaget/internal/casda"
	"casdaget/internal/casda/casdatest"
)

func TestSyncTAPQuery(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(casdatest.ResultVOTable(
		[]string{"obs_publisher_did", "obs_collection"},
		[]string{"cube-1234", "ASKAP"},
		[]string{"cube-5678", "ASKAP"},
	))
	client := newTestClient(t, srv)

	dest := filepath.Join(t.TempDir(), "result.xml")
	doc, err := client.SyncTAPQuery(context.Background(), "SELECT * FROM ivoa.obscore", dest)
	require.NoError(t, err)

	table, err := doc.FirstTable()
	require.NoError(t, err)
	ids, err := table.Column("obs_publisher_did")
	require.NoError(t, err)
	assert.Equal(t, []string{"cube-1234", "cube-5678"}, ids)

	saved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "cube-1234")

	requests := srv.TAPRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/vo/tap/sync", requests[0].Path)
	assert.Equal(t, "SELECT * FROM ivoa.obscore", requests[0].Params.Get("query"))
	assert.Equal(t, "doQuery", requests[0].Params.Get("request"))
	assert.Equal(t, "ADQL", requests[0].Params.Get("lang"))
	assert.Equal(t, "votable", requests[0].Params.Get("format"))
}

func TestSyncTAPQueryAnonymousEndpoint(t *testing.T) {
	srv := casdatest.NewServer(t)
	client := newAnonymousClient(t, srv)

	_, err := client.SyncTAPQuery(context.Background(), "SELECT TOP 1 * FROM ivoa.obscore", "")
	require.NoError(t, err)

	requests := srv.TAPRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/anonvo/tap/sync", requests[0].Path)
}

func TestSyncTAPQueryRejected(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(casdatest.ErrorVOTable("Unknown table casda.nonsense"))
	client := newTestClient(t, srv)

	_, err := client.SyncTAPQuery(context.Background(), "SELECT * FROM casda.nonsense", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "query rejected: Unknown table casda.nonsense")
}

func TestSyncTAPQueryAuthFailure(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetCredentials("astro", "righthorse")
	client := casda.NewClient(srv.Environment(), "astro", "wronghorse", testLogger())

	_, err := client.SyncTAPQuery(context.Background(), "SELECT * FROM ivoa.obscore", "")
	require.Error(t, err)
	var serviceErr *casda.Error
	require.ErrorAs(t, err, &serviceErr)
	assert.True(t, serviceErr.AuthFailure())
	assert.Equal(t, http.StatusUnauthorized, serviceErr.StatusCode)
}

func TestSyncTAPQueryServerError(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPStatus(http.StatusServiceUnavailable)
	client := newTestClient(t, srv)

	_, err := client.SyncTAPQuery(context.Background(), "SELECT * FROM ivoa.obscore", "")
	var serviceErr *casda.Error
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, http.StatusServiceUnavailable, serviceErr.StatusCode)
	assert.False(t, serviceErr.AuthFailure())
}

func TestCreateTAPAsyncJob(t *testing.T) {
	srv := casdatest.NewServer(t)
	client := newTestClient(t, srv)

	jobURL, err := client.CreateTAPAsyncJob(context.Background(), "SELECT * FROM casda.continuum_component")
	require.NoError(t, err)
	assert.Equal(t, srv.URL()+"/jobs/job-1", jobURL)

	requests := srv.TAPRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/vo/tap/async", requests[0].Path)
	assert.Equal(t, "ADQL", requests[0].Params.Get("lang"))
	assert.Equal(t, "votable", requests[0].Params.Get("format"))
	// The async endpoint takes the query without a doQuery request param.
	assert.Empty(t, requests[0].Params.Get("request"))

	jobs := srv.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "tap", jobs[0].Kind)
	assert.False(t, jobs[0].Started)
}

func TestAsyncTAPQuery(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(casdatest.ResultVOTable(
		[]string{"component_id", "flux_peak"},
		[]string{"SB1234_comp_01", "712.4"},
	))
	client := newTestClient(t, srv)

	destDir := t.TempDir()
	doc, err := client.AsyncTAPQuery(context.Background(), "SELECT * FROM casda.continuum_component WHERE flux_peak > 500", destDir, time.Millisecond)
	require.NoError(t, err)

	table, err := doc.FirstTable()
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	flux, err := table.FloatCell(0, "flux_peak")
	require.NoError(t, err)
	assert.InDelta(t, 712.4, flux, 1e-9)

	// The result file lands in the destination directory.
	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "result", entries[0].Name())

	jobs := srv.Jobs()
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Started)
}
