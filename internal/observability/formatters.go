// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"casdaget/internal/casda"
	"casdaget/internal/uws"
	"casdaget/internal/votable"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintEnvironment outputs the archive endpoints a run talks to.
func (p *Printer) PrintEnvironment(env casda.Environment) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", env.Name))
	sb.WriteString(fmt.Sprintf("Query:    %s\n", env.QueryBase))
	sb.WriteString(fmt.Sprintf("Public:   %s\n", env.AnonQueryBase))
	sb.WriteString(fmt.Sprintf("SODA:     %s", env.SodaBase))

	p.printBox("ARCHIVE ENVIRONMENT", sb.String())
}

// PrintQueryResult outputs a summary of a catalogue query result: the record
// count and the first few data product ids.
func (p *Printer) PrintQueryResult(table *votable.Table) {
	if table == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Records:  %d\n", len(table.Rows)))

	// Prefer the data product id column; fall back to the first column.
	idx, err := table.ColumnIndex("obs_publisher_did")
	if err != nil {
		idx = 0
	}
	if len(table.Rows) > 0 && idx < len(table.Fields) {
		sb.WriteString(fmt.Sprintf("\n%s:\n", table.Fields[idx].Name))
		count := min(len(table.Rows), maxItemsToShow)
		for i := 0; i < count; i++ {
			row := table.Rows[i]
			if idx >= len(row.Cells) {
				continue
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", row.Cells[idx]))
		}
		if len(table.Rows) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(table.Rows)-maxItemsToShow))
		}
	}

	p.printBox("QUERY RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJob outputs a data access job's phase, parameters and results.
func (p *Printer) PrintJob(job *uws.Job, resultsPage string) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Phase:    %s\n", job.Phase))
	if resultsPage != "" {
		sb.WriteString(fmt.Sprintf("Monitor:  %s\n", resultsPage))
	}

	if len(job.Parameters) > 0 {
		sb.WriteString("\nParameters:\n")
		count := min(len(job.Parameters), maxItemsToShow)
		for i := 0; i < count; i++ {
			param := job.Parameters[i]
			value := param.Value
			if len(value) > 40 {
				value = value[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s = %s\n", param.ID, value))
		}
		if len(job.Parameters) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(job.Parameters)-maxItemsToShow))
		}
	}

	if msg := job.ErrorMessage(); msg != "" {
		sb.WriteString(fmt.Sprintf("\n⚠ %s\n", msg))
	}

	if len(job.Results) > 0 {
		sb.WriteString(fmt.Sprintf("\nResults (%d):\n", len(job.Results)))
		count := min(len(job.Results), maxItemsToShow)
		for i := 0; i < count; i++ {
			href := job.Results[i].Href
			if len(href) > 50 {
				href = href[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", href))
		}
		if len(job.Results) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(job.Results)-maxItemsToShow))
		}
	}

	p.printBox("DATA ACCESS JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDownloads outputs the artifacts fetched to disk.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintDownloads(paths []string) {
	if len(paths) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO FILES DOWNLOADED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Downloaded %d files:\n\n", len(paths)))

	count := min(len(paths), maxItemsToShow)
	for i := 0; i < count; i++ {
		path := paths[i]
		// Keep the tail of long paths, the file name is the useful part.
		if len(path) > 50 {
			path = "..." + path[len(path)-47:]
		}
		sb.WriteString(fmt.Sprintf("• %s\n", path))
	}
	if len(paths) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more files", len(paths)-maxItemsToShow))
	}

	p.printBox("DOWNLOADED FILES", strings.TrimSuffix(sb.String(), "\n"))
}
