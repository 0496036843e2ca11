package casdatest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"casdaget/internal/uws"
)

func (s *Server) handleTAPSync(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	query := r.URL.Query().Get("query")
	s.mu.Lock()
	s.tapRequests = append(s.tapRequests, TAPRequest{Path: r.URL.Path, Params: r.URL.Query()})
	status := s.tapStatus
	s.mu.Unlock()
	if status != http.StatusOK {
		http.Error(w, "query refused", status)
		return
	}
	fmt.Fprint(w, s.tapBody(query))
}

func (s *Server) handleTAPAsync(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query().Get("query")
	s.mu.Lock()
	s.tapRequests = append(s.tapRequests, TAPRequest{Path: r.URL.Path, Params: r.URL.Query()})
	status := s.tapStatus
	s.mu.Unlock()
	if status != http.StatusOK {
		http.Error(w, "query refused", status)
		return
	}
	http.Redirect(w, r, s.newJob("tap", query, nil), http.StatusSeeOther)
}

func (s *Server) handleSIA(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	s.mu.Lock()
	s.siaQueries = append(s.siaQueries, r.URL.Query())
	body := s.siaResult
	s.mu.Unlock()
	fmt.Fprint(w, body)
}

func (s *Server) handleDataLink(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	id := r.URL.Query().Get("ID")
	s.mu.Lock()
	p, known := s.products[id]
	s.mu.Unlock()
	if !known {
		p = Product{ID: id, Denied: true}
	}
	authenticated := !p.ViaAuthLink || r.URL.Query().Get("auth") == "1"
	fmt.Fprint(w, s.datalinkXML(p, authenticated))
}

func (s *Server) handleCreateSODAJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	tokens := r.URL.Query()["ID"]
	http.Redirect(w, r, s.newJob("soda", "", tokens), http.StatusSeeOther)
}

// handleJob serves the UWS job resources: the job document, the parameter
// list, the phase endpoint and TAP result files.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/"), "/")
	s.mu.Lock()
	j, ok := s.jobs[parts[0]]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.serveJobDocument(w, j)
	case len(parts) == 2 && parts[1] == "parameters" && r.Method == http.MethodPost:
		s.addJobParams(w, r, j)
	case len(parts) == 2 && parts[1] == "phase" && r.Method == http.MethodPost:
		s.setJobPhase(w, r, j)
	case len(parts) == 3 && parts[1] == "results" && r.Method == http.MethodGet:
		s.mu.Lock()
		query := j.query
		s.mu.Unlock()
		fmt.Fprint(w, s.tapBody(query))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveJobDocument(w http.ResponseWriter, j *fakeJob) {
	s.mu.Lock()
	phase := s.advancePhase(j)
	if phase == uws.PhaseCompleted {
		s.ensureResults(j)
	}
	doc := s.jobXML(j, phase)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, doc)
}

func (s *Server) addJobParams(w http.ResponseWriter, r *http.Request, j *fakeJob) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	for key, vals := range r.PostForm {
		j.params[key] = append(j.params[key], vals...)
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) setJobPhase(w http.ResponseWriter, r *http.Request, j *fakeJob) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("phase") != "RUN" {
		http.Error(w, "unsupported phase", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	j.started = true
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

// ensureResults generates one artifact per token and cutout combination the
// first time a job completes. Callers hold the lock.
func (s *Server) ensureResults(j *fakeJob) {
	if j.results != nil {
		return
	}
	if j.kind == "tap" {
		j.results = []string{"jobs/" + j.id + "/results/result"}
		return
	}
	cutouts := countValues(j.params, "pos") * countValues(j.params, "band")
	if cutouts == 0 {
		cutouts = 1
	}
	total := len(j.tokens) * cutouts
	for n := 1; n <= total; n++ {
		name := fmt.Sprintf("cutout-%s-%d.fits", j.id, n)
		s.files[name] = []byte(strings.Repeat(name+" ", 8))
		j.results = append(j.results, "files/"+name)
	}
}

// countValues counts a parameter's values regardless of key case,
// defaulting to one so parameter-free jobs still yield an artifact.
func countValues(params map[string][]string, key string) int {
	n := 0
	for k, vals := range params {
		if strings.EqualFold(k, key) {
			n += len(vals)
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/files/")
	s.mu.Lock()
	content, ok := s.files[name]
	removed := s.removed[name]
	failing := s.failing[name]
	disposition := s.dispositions[name]
	s.mu.Unlock()
	if removed || !ok {
		http.NotFound(w, r)
		return
	}
	if failing {
		http.Error(w, "storage offline", http.StatusInternalServerError)
		return
	}
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Write(content)
}
