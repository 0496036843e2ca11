package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"casdaget/internal/casda"
	"casdaget/internal/uws"
	"casdaget/internal/votable"
)

func TestPrintEnvironment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	env, err := casda.EnvironmentByName("prod")
	assert.NoError(t, err)

	p.PrintEnvironment(env)
	output := buf.String()

	assert.Contains(t, output, "ARCHIVE ENVIRONMENT")
	assert.Contains(t, output, "prod")
	assert.Contains(t, output, "casda_vo_proxy")
}

func TestPrintQueryResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	table := &votable.Table{
		Fields: []votable.Field{
			{Name: "obs_id"},
			{Name: "obs_publisher_did"},
		},
		Rows: []votable.Row{
			{Cells: []string{"12345", "cube-1234"}},
			{Cells: []string{"12345", "cube-5678"}},
		},
	}

	p.PrintQueryResult(table)
	output := buf.String()

	assert.Contains(t, output, "QUERY RESULT")
	assert.Contains(t, output, "Records:  2")
	assert.Contains(t, output, "cube-1234")
	assert.Contains(t, output, "cube-5678")
}

func TestPrintQueryResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQueryResult(nil)

	assert.Empty(t, buf.String())
}

func TestPrintQueryResult_ManyRows(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	table := &votable.Table{
		Fields: []votable.Field{{Name: "obs_publisher_did"}},
	}
	for i := 0; i < 8; i++ {
		table.Rows = append(table.Rows, votable.Row{Cells: []string{"cube"}})
	}

	p.PrintQueryResult(table)
	output := buf.String()

	assert.Contains(t, output, "Records:  8")
	assert.Contains(t, output, "... and 3 more")
}

func TestPrintJob(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	job := &uws.Job{
		ID:    "job-7",
		Phase: uws.PhaseCompleted,
		Parameters: []uws.Parameter{
			{ID: "ID", Value: "cube-1234-token"},
			{ID: "pos", Value: "CIRCLE 320.5 -43.2 0.1"},
		},
		Results: []uws.Result{
			{ID: "result-1", Href: "https://example.org/files/cutout-1.fits"},
		},
	}

	p.PrintJob(job, "https://example.org/requests/job-7")
	output := buf.String()

	assert.Contains(t, output, "DATA ACCESS JOB")
	assert.Contains(t, output, "job-7")
	assert.Contains(t, output, "COMPLETED")
	assert.Contains(t, output, "requests/job-7")
	assert.Contains(t, output, "CIRCLE 320.5 -43.2 0.1")
	assert.Contains(t, output, "cutout-1.fits")
}

func TestPrintJob_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJob(nil, "")

	assert.Empty(t, buf.String())
}

func TestPrintJob_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	job := &uws.Job{
		ID:    "job-9",
		Phase: uws.PhaseError,
		Error: &uws.ErrorSummary{Type: "fatal", Message: "cutout does not intersect image"},
	}

	p.PrintJob(job, "")
	output := buf.String()

	assert.Contains(t, output, "ERROR")
	assert.Contains(t, output, "cutout does not intersect image")
}

func TestPrintDownloads(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDownloads([]string{
		"/data/cutout-1.fits",
		"/data/cutout-2.fits",
	})
	output := buf.String()

	assert.Contains(t, output, "DOWNLOADED FILES")
	assert.Contains(t, output, "Downloaded 2 files")
	assert.Contains(t, output, "cutout-1.fits")
}

func TestPrintDownloads_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDownloads(nil)

	assert.Contains(t, buf.String(), "NO FILES DOWNLOADED")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	table := &votable.Table{
		Fields: []votable.Field{{Name: "obs_publisher_did"}},
		Rows: []votable.Row{
			{Cells: []string{strings.Repeat("cube-with-a-very-long-identifier-", 4)}},
		},
	}

	p.PrintQueryResult(table)
	output := buf.String()

	// Should contain box characters
	assert.True(t, strings.Contains(output, "┌"))
	assert.True(t, strings.Contains(output, "└"))
	assert.True(t, strings.Contains(output, "│"))
}
