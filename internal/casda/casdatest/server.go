// Package casdatest provides an in-memory stand-in for the CASDA archive
// services, covering the endpoints the client touches: TAP sync and async
// queries, SIA2 search, DataLink resolution, SODA job management and result
// file hosting. Tests script job phase sequences and inspect what the
// client submitted.
package casdatest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"casdaget/internal/casda"
	"casdaget/internal/uws"
)

// Product configures how DataLink answers for one data product.
type Product struct {
	ID          string
	Services    []string // service_def rows granting tokens, e.g. cutout_service
	ViaAuthLink bool     // first document only points at the authenticated one
	Denied      bool     // no token rows at all
}

// TAPRequest records one received TAP query for assertions.
type TAPRequest struct {
	Path   string
	Params url.Values
}

// JobView is a snapshot of one job for assertions.
type JobView struct {
	ID      string
	Kind    string // "soda" or "tap"
	Phase   uws.Phase
	Started bool
	Tokens  []string
	Params  url.Values
	Query   string
}

type fakeJob struct {
	id      string
	kind    string
	query   string // tap only
	tokens  []string
	params  url.Values
	script  []uws.Phase
	started bool
	polls   int
	results []string
}

// Server is the fake archive.
type Server struct {
	hs *httptest.Server

	mu sync.Mutex

	// configuration
	tapResult    string
	tapResultFor func(adql string) string
	tapStatus    int
	siaResult    string
	products     map[string]Product
	defaultPlan  []uws.Phase
	queuedPlans  [][]uws.Phase
	errorMessage string
	files        map[string][]byte
	removed      map[string]bool
	failing      map[string]bool
	dispositions map[string]string
	authUser     string
	authPass     string

	// recordings
	tapRequests []TAPRequest
	siaQueries  []url.Values
	jobs        map[string]*fakeJob
	jobOrder    []string
	seq         int
}

// NewServer starts a fake archive, shut down with the test.
func NewServer(t *testing.T) *Server {
	s := &Server{
		tapStatus:    http.StatusOK,
		siaResult:    EmptyVOTable,
		tapResult:    EmptyVOTable,
		products:     make(map[string]Product),
		defaultPlan:  []uws.Phase{uws.PhaseCompleted},
		errorMessage: "The cutout job failed",
		files:        make(map[string][]byte),
		removed:      make(map[string]bool),
		failing:      make(map[string]bool),
		dispositions: make(map[string]string),
		jobs:         make(map[string]*fakeJob),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/vo/tap/sync", s.handleTAPSync)
	mux.HandleFunc("/anonvo/tap/sync", s.handleTAPSync)
	mux.HandleFunc("/vo/tap/async", s.handleTAPAsync)
	mux.HandleFunc("/anonvo/tap/async", s.handleTAPAsync)
	mux.HandleFunc("/vo/sia2/query", s.handleSIA)
	mux.HandleFunc("/vo/datalink/links", s.handleDataLink)
	mux.HandleFunc("/soda/data/async", s.handleCreateSODAJob)
	mux.HandleFunc("/jobs/", s.handleJob)
	mux.HandleFunc("/files/", s.handleFile)
	mux.HandleFunc("/soda/requests/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "request page")
	})

	s.hs = httptest.NewServer(mux)
	t.Cleanup(s.hs.Close)
	return s
}

// URL returns the server's base address.
func (s *Server) URL() string {
	return s.hs.URL
}

// Environment returns a client environment pointing every service at the
// fake archive.
func (s *Server) Environment() casda.Environment {
	return casda.Environment{
		Name:          "fake",
		QueryBase:     s.hs.URL + "/vo/",
		AnonQueryBase: s.hs.URL + "/anonvo/",
		SodaBase:      s.hs.URL + "/soda/",
	}
}

// SetTAPResult serves the given VOTable for every TAP query.
func (s *Server) SetTAPResult(votable string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tapResult = votable
}

// SetTAPResultFunc picks the TAP response per ADQL query, for flows that
// run several different queries.
func (s *Server) SetTAPResultFunc(fn func(adql string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tapResultFor = fn
}

// SetTAPStatus makes TAP queries answer with the given HTTP status.
func (s *Server) SetTAPStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tapStatus = code
}

// SetSIAResult serves the given VOTable for every SIA2 query.
func (s *Server) SetSIAResult(votable string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.siaResult = votable
}

// AddProduct registers a data product for DataLink resolution.
func (s *Server) AddProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// SetPhaseScript sets the phase sequence new SODA jobs walk through once
// started, one entry per status poll; the last entry repeats.
func (s *Server) SetPhaseScript(phases ...uws.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultPlan = phases
}

// QueueScript sets the phase sequence for the next created SODA job only.
// Queued scripts are consumed in job creation order before the default
// script applies.
func (s *Server) QueueScript(phases ...uws.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuedPlans = append(s.queuedPlans, phases)
}

// SetErrorMessage sets the errorSummary message of failing jobs.
func (s *Server) SetErrorMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorMessage = msg
}

// SetCredentials makes the authenticated endpoints require this basic auth
// pair, rejecting everything else with 401.
func (s *Server) SetCredentials(user, pass string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authUser, s.authPass = user, pass
}

// AddFile hosts a downloadable file.
func (s *Server) AddFile(name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = content
}

// RemoveFile makes the named artifact answer 404, even when a job result
// still points at it.
func (s *Server) RemoveFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[name] = true
}

// FailFile makes the named artifact answer 500.
func (s *Server) FailFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[name] = true
}

// SetContentDisposition attaches a Content-Disposition filename to the
// named artifact.
func (s *Server) SetContentDisposition(name, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispositions[name] = fmt.Sprintf("attachment; filename=%s", filename)
}

// TAPRequests returns every TAP request received so far.
func (s *Server) TAPRequests() []TAPRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TAPRequest(nil), s.tapRequests...)
}

// TAPQueries returns the ADQL of every TAP request received so far.
func (s *Server) TAPQueries() []string {
	var queries []string
	for _, r := range s.TAPRequests() {
		queries = append(queries, r.Params.Get("query"))
	}
	return queries
}

// SIAQueries returns the parameters of every SIA2 query received so far.
func (s *Server) SIAQueries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.siaQueries...)
}

// Jobs returns a snapshot of all jobs in creation order.
func (s *Server) Jobs() []JobView {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]JobView, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		j := s.jobs[id]
		params := url.Values{}
		for k, v := range j.params {
			params[k] = append([]string(nil), v...)
		}
		views = append(views, JobView{
			ID:      j.id,
			Kind:    j.kind,
			Phase:   s.currentPhase(j),
			Started: j.started,
			Tokens:  append([]string(nil), j.tokens...),
			Params:  params,
			Query:   j.query,
		})
	}
	return views
}

// SODAJobs returns the snapshot filtered to SODA jobs.
func (s *Server) SODAJobs() []JobView {
	var views []JobView
	for _, v := range s.Jobs() {
		if v.Kind == "soda" {
			views = append(views, v)
		}
	}
	return views
}

// newJob creates a job and returns its location path. Callers hold no lock.
func (s *Server) newJob(kind, query string, tokens []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("job-%d", s.seq)
	j := &fakeJob{
		id:     id,
		kind:   kind,
		query:  query,
		tokens: tokens,
		params: url.Values{},
		script: s.defaultPlan,
	}
	if kind == "soda" && len(s.queuedPlans) > 0 {
		j.script = s.queuedPlans[0]
		s.queuedPlans = s.queuedPlans[1:]
	}
	if kind == "tap" {
		j.script = []uws.Phase{uws.PhaseCompleted}
	}
	s.jobs[id] = j
	s.jobOrder = append(s.jobOrder, id)
	return "/jobs/" + id
}

// currentPhase reads a job's phase without advancing it. Callers hold the
// lock.
func (s *Server) currentPhase(j *fakeJob) uws.Phase {
	if !j.started {
		return uws.PhasePending
	}
	idx := j.polls
	if idx >= len(j.script) {
		idx = len(j.script) - 1
	}
	if idx < 0 {
		return uws.PhaseCompleted
	}
	return j.script[idx]
}

// advancePhase reads the phase for one status poll and steps the script.
// Callers hold the lock.
func (s *Server) advancePhase(j *fakeJob) uws.Phase {
	phase := s.currentPhase(j)
	if j.started && j.polls < len(j.script) {
		j.polls++
	}
	return phase
}

// authorized checks basic auth on the authenticated endpoints.
func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authUser == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && user == s.authUser && pass == s.authPass
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/vo/") && !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) tapBody(query string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tapResultFor != nil {
		return s.tapResultFor(query)
	}
	return s.tapResult
}
