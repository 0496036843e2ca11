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

func TestSourceCutouts(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(obscoreIDs("cube-42"))
	srv.AddProduct(casdatest.Product{ID: "cube-42", Services: []string{casda.CutoutService}})
	sourceFile := writeSourceFile(t,
		"# ra dec",
		"320.5 -43.2",
		"",
		"21:30:00 -43:30:00",
	)
	runner, destDir := newTestRunner(t, srv, nil)

	err := runner.SourceCutouts(context.Background(), workflow.SourceCutoutsRequest{
		ImageID:    "cube-42",
		SourceFile: sourceFile,
	})
	require.NoError(t, err)

	queries := srv.TAPQueries()
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "obs_publisher_did = 'cube-42'")

	jobs := srv.SODAJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{
		"CIRCLE 320.5 -43.2 0.1",
		"CIRCLE 322.5 -43.5 0.1",
	}, jobs[0].Params["pos"])

	// Artifacts land in a per-image subdirectory.
	imageDir := filepath.Join(destDir, "cube-42")
	assert.FileExists(t, filepath.Join(imageDir, "cube-42.xml"))
	assert.Len(t, cutoutFiles(t, imageDir), 2)
}

func TestSourceCutoutsEmptySourceList(t *testing.T) {
	srv := casdatest.NewServer(t)
	sourceFile := writeSourceFile(t, "# just a header")
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.SourceCutouts(context.Background(), workflow.SourceCutoutsRequest{
		ImageID:    "cube-42",
		SourceFile: sourceFile,
	})
	assert.ErrorContains(t, err, "contains no sources")
}

func TestSourceCutoutsUnknownImage(t *testing.T) {
	srv := casdatest.NewServer(t)
	sourceFile := writeSourceFile(t, "320.5 -43.2")
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.SourceCutouts(context.Background(), workflow.SourceCutoutsRequest{
		ImageID:    "cube-42",
		SourceFile: sourceFile,
	})
	require.NoError(t, err)
	assert.Empty(t, srv.Jobs())
}

func TestSourceCutoutsDenied(t *testing.T) {
	srv := casdatest.NewServer(t)
	srv.SetTAPResult(obscoreIDs("cube-42"))
	sourceFile := writeSourceFile(t, "320.5 -43.2")
	runner, _ := newTestRunner(t, srv, nil)

	err := runner.SourceCutouts(context.Background(), workflow.SourceCutoutsRequest{
		ImageID:    "cube-42",
		SourceFile: sourceFile,
	})
	assert.ErrorContains(t, err, "no accessible image cubes for cube-42")
}
