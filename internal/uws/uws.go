// Package uws models IVOA Universal Worker Service job documents, the XML
// returned by SODA and TAP async endpoints.
package uws

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Execution phases defined by the UWS schema. A job moves through the
// non-terminal phases until it reaches COMPLETED, ERROR or ABORTED.
const (
	PhasePending   Phase = "PENDING"
	PhaseQueued    Phase = "QUEUED"
	PhaseExecuting Phase = "EXECUTING"
	PhaseCompleted Phase = "COMPLETED"
	PhaseError     Phase = "ERROR"
	PhaseAborted   Phase = "ABORTED"
	PhaseHeld      Phase = "HELD"
	PhaseSuspended Phase = "SUSPENDED"
	PhaseUnknown   Phase = "UNKNOWN"
)

// Phase is the execution phase of a UWS job.
type Phase string

// Terminal reports whether the phase is one the job can never leave.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseError, PhaseAborted:
		return true
	}
	return false
}

// Failed reports whether the phase is a terminal failure.
func (p Phase) Failed() bool {
	return p == PhaseError || p == PhaseAborted
}

// Job is a UWS job document.
type Job struct {
	XMLName    xml.Name      `xml:"http://www.ivoa.net/xml/UWS/v1.0 job"`
	ID         string        `xml:"http://www.ivoa.net/xml/UWS/v1.0 jobId"`
	OwnerID    string        `xml:"http://www.ivoa.net/xml/UWS/v1.0 ownerId"`
	Phase      Phase         `xml:"http://www.ivoa.net/xml/UWS/v1.0 phase"`
	StartTime  string        `xml:"http://www.ivoa.net/xml/UWS/v1.0 startTime"`
	EndTime    string        `xml:"http://www.ivoa.net/xml/UWS/v1.0 endTime"`
	Parameters []Parameter   `xml:"http://www.ivoa.net/xml/UWS/v1.0 parameters>parameter"`
	Results    []Result      `xml:"http://www.ivoa.net/xml/UWS/v1.0 results>result"`
	Error      *ErrorSummary `xml:"http://www.ivoa.net/xml/UWS/v1.0 errorSummary"`
}

// Parameter is a single job parameter.
type Parameter struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

// Result is a single job result, pointing at a downloadable artifact.
type Result struct {
	ID   string `xml:"id,attr"`
	Href string `xml:"http://www.w3.org/1999/xlink href,attr"`
}

// ErrorSummary describes why a job ended in the ERROR phase.
type ErrorSummary struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"http://www.ivoa.net/xml/UWS/v1.0 message"`
}

// ParseJob decodes a UWS job document from r.
func ParseJob(r io.Reader) (*Job, error) {
	var job Job
	if err := xml.NewDecoder(r).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to parse UWS job: %w", err)
	}
	return &job, nil
}

// ResultURLs returns the download locations of all job results, in document
// order.
func (j *Job) ResultURLs() []string {
	urls := make([]string, 0, len(j.Results))
	for _, res := range j.Results {
		urls = append(urls, res.Href)
	}
	return urls
}

// ErrorMessage returns the failure detail from the job's error summary, or
// an empty string when the job carries none.
func (j *Job) ErrorMessage() string {
	if j.Error == nil {
		return ""
	}
	return j.Error.Message
}
