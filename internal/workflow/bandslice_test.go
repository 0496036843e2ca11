package workflow_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casdaget/internal/casda"
	"casdaget/internal/casda/casdatest"
	"casdaget/internal/workflow"
)

func TestBandSlice(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(obscoreIDs("cube-1", "cube-2"))
	srv.AddProduct(casdatest.Product{ID: "cube-1", Services: []string{casda.CutoutService}})
	srv.AddProduct(casdatest.Product{ID: "cube-2", Services: []string{casda.CutoutService}})
	runner, destDir := newTestRunner(t, srv, nil)

	err := runner.BandSlice(context.Background(), workflow.BandSliceRequest{
		SBID:    "12345",
		BandMin: 0.21,
		BandMax: 0.22,
	})
	require.NoError(t, err)

	queries := srv.TAPQueries()
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "obs_id='12345'")
	assert.Contains(t, queries[0], "dataproduct_subtype='spectral.restored.3d'")

	// Both cubes go into one job with a single wavelength range.
	jobs := srv.SODAJobs()
	require.Len(t, jobs, 1)
	assert.Len(t, jobs[0].Tokens, 2)
	assert.Equal(t, []string{"0.21 0.22"}, jobs[0].Params["BAND"])

	assert.Len(t, cutoutFiles(t, destDir), 2)
	assert.FileExists(t, filepath.Join(destDir, "image_cubes_12345.xml"))
}

func TestBandSliceSubtype(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(obscoreIDs("cube-1"))
	srv.AddProduct(casdatest.Product{ID: "cube-1", Services: []string{casda.CutoutService}})
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.BandSlice(context.Background(), workflow.BandSliceRequest{
		SBID:    "12345",
		Subtype: "cont.restored.t0",
		BandMin: 0.21,
		BandMax: 0.22,
	})
	require.NoError(t, err)
	assert.Contains(t, srv.TAPQueries()[0], "dataproduct_subtype='cont.restored.t0'")
}

func TestBandSliceNoCubes(t *testing.T) {
	srv := casdatest.NewServer(t)
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.BandSlice(context.Background(), workflow.BandSliceRequest{SBID: "12345", BandMin: 0.21, BandMax: 0.22})
	require.NoError(t, err)
	assert.Empty(t, srv.Jobs())
}

func TestBandSliceValidation(t *testing.T) {
	srv := casdatest.NewServer(t)
	runner, _ := newTestRunner(t, srv, nil)

	tests := []struct {
		name string
		req  workflow.BandSliceRequest
	}{
		{name: "missing band", req: workflow.BandSliceRequest{SBID: "12345"}},
		{name: "inverted band", req: workflow.BandSliceRequest{SBID: "12345", BandMin: 0.3, BandMax: 0.2}},
		{name: "missing sbid", req: workflow.BandSliceRequest{BandMin: 0.21, BandMax: 0.22}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runner.BandSlice(context.Background(), tt.req)
			assert.ErrorContains(t, err, "invalid band slice request")
		})
	}
}
