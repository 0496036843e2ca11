package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casdaget/internal/casda"
	"casdaget/internal/casda/casdatest"
	"casdaget/internal/workflow"
)

func TestSpectra(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetSIAResult(casdatest.ResultVOTable(
		[]string{"obs_publisher_did", "dataproduct_subtype"},
		[]string{"cube-1", "spectral.restored.3d"},
		[]string{"image-2", "cont.restored.t0"},
		[]string{"cube-3", "spectral.restored.3d"},
	))
	srv.AddProduct(casdatest.Product{ID: "cube-1", Services: []string{casda.SpectrumGenerationService}})
	srv.AddProduct(casdatest.Product{ID: "cube-3", Services: []string{casda.SpectrumGenerationService}})
	sourceFile := writeSourceFile(t, "320.5 -43.2", "322.5 -43.5")
	runner, destDir := newTestRunner(t, srv, nil)

	err := runner.Spectra(context.Background(), workflow.SpectraRequest{SourceFile: sourceFile})
	require.NoError(t, err)

	queries := srv.SIAQueries()
	require.Len(t, queries, 1)
	assert.Equal(t, []string{
		"CIRCLE 320.5 -43.2 0.1",
		"CIRCLE 322.5 -43.5 0.1",
	}, queries[0]["POS"])

	// The continuum image is filtered out; only spectral cubes are used.
	jobs := srv.SODAJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{
		"cube-1-token-spectrum_generation_service",
		"cube-3-token-spectrum_generation_service",
	}, jobs[0].Tokens)
	assert.Len(t, jobs[0].Params["pos"], 2)

	// Two cubes and two positions give four spectra.
	assert.Len(t, cutoutFiles(t, destDir), 4)
}

func TestSpectraNoMatchingCubes(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetSIAResult(casdatest.ResultVOTable(
		[]string{"obs_publisher_did", "dataproduct_subtype"},
		[]string{"image-2", "cont.restored.t0"},
	))
	sourceFile := writeSourceFile(t, "320.5 -43.2")
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.Spectra(context.Background(), workflow.SpectraRequest{SourceFile: sourceFile})
	require.NoError(t, err)
	assert.Empty(t, srv.Jobs())
}

func TestSpectraNoAccessIsClean(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetSIAResult(casdatest.ResultVOTable(
		[]string{"obs_publisher_did", "dataproduct_subtype"},
		[]string{"cube-1", "spectral.restored.3d"},
	))
	sourceFile := writeSourceFile(t, "320.5 -43.2")
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.Spectra(context.Background(), workflow.SpectraRequest{SourceFile: sourceFile})
	require.NoError(t, err)
	assert.Empty(t, srv.Jobs())
}

func TestSpectraEmptySourceList(t *testing.T) {
	srv := casdatest.NewServer(t)
	sourceFile := writeSourceFile(t, "# no sources here")
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.Spectra(context.Background(), workflow.SpectraRequest{SourceFile: sourceFile})
	assert.ErrorContains(t, err, "contains no sources")
}
