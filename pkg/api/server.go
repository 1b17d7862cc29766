package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"site-analyzer/pkg/config"
	"site-analyzer/pkg/crawl"
	"site-analyzer/pkg/jobs"
	"site-analyzer/pkg/models"
	"site-analyzer/pkg/storage"
)

// Server is a thin HTTP adapter over the crawl orchestrator: it translates
// JSON requests into CrawlRequest values and serializes results back. No
// orchestration logic lives here.
type Server struct {
	cfg   *config.AppConfig
	orch  *crawl.Orchestrator
	batch *crawl.Coordinator
	jobs  *jobs.Manager
	store storage.ResultStore // may be nil (persistence disabled)
	log   *logrus.Entry
	mux   *http.ServeMux
}

// NewServer wires the adapter. store may be nil to disable persistence.
func NewServer(cfg *config.AppConfig, orch *crawl.Orchestrator, batch *crawl.Coordinator, jobsMgr *jobs.Manager, store storage.ResultStore, log *logrus.Entry) *Server {
	s := &Server{
		cfg:   cfg,
		orch:  orch,
		batch: batch,
		jobs:  jobsMgr,
		store: store,
		log:   log,
		mux:   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /crawl", s.handleCrawl)
	s.mux.HandleFunc("POST /crawl/background", s.handleCrawlBackground)
	s.mux.HandleFunc("POST /crawl-batch", s.handleCrawlBatch)
	s.mux.HandleFunc("POST /crawl-batch/background", s.handleCrawlBatchBackground)
	s.mux.HandleFunc("GET /jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("DELETE /jobs/{id}", s.handleCancelJob)
	s.mux.HandleFunc("GET /results", s.handleListResults)
	s.mux.HandleFunc("GET /results/{id}", s.handleGetResult)
	s.mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
}

// Handler returns the adapter's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// crawlRequestBody is the wire form of a crawl request. Pointer fields
// distinguish "omitted" from explicit zero values so defaults apply only
// when the caller stayed silent.
type crawlRequestBody struct {
	URL             string   `json:"url"`
	MaxPages        *int     `json:"max_pages,omitempty"`
	Depth           *int     `json:"depth,omitempty"`
	FollowLinks     *bool    `json:"follow_links,omitempty"`
	SaveHTML        *bool    `json:"save_html,omitempty"`
	SaveLinks       *bool    `json:"save_links,omitempty"`
	ExtractMetadata *bool    `json:"extract_metadata,omitempty"`
	CrawlDelay      *float64 `json:"crawl_delay,omitempty"` // seconds
	UserAgent       string   `json:"user_agent,omitempty"`
}

// toModel applies the adapter-level defaults: one page, seed only,
// metadata and links on (matching the service's documented defaults).
func (b crawlRequestBody) toModel() models.CrawlRequest {
	req := models.CrawlRequest{
		URL:             b.URL,
		MaxPages:        1,
		ExtractMetadata: true,
		SaveLinks:       true,
		UserAgent:       b.UserAgent,
	}
	if b.MaxPages != nil {
		req.MaxPages = *b.MaxPages
	}
	if b.Depth != nil {
		req.Depth = *b.Depth
	}
	if b.FollowLinks != nil {
		req.FollowLinks = *b.FollowLinks
	}
	if b.SaveHTML != nil {
		req.SaveHTML = *b.SaveHTML
	}
	if b.SaveLinks != nil {
		req.SaveLinks = *b.SaveLinks
	}
	if b.ExtractMetadata != nil {
		req.ExtractMetadata = *b.ExtractMetadata
	}
	if b.CrawlDelay != nil {
		req.CrawlDelay = time.Duration(*b.CrawlDelay * float64(time.Second))
	}
	return req
}

// batchRequestBody is the wire form of a batch crawl request.
type batchRequestBody struct {
	URLs            []string `json:"urls"`
	MaxPagesPerURL  *int     `json:"max_pages_per_url,omitempty"`
	Depth           *int     `json:"depth,omitempty"`
	FollowLinks     *bool    `json:"follow_links,omitempty"`
	SaveHTML        *bool    `json:"save_html,omitempty"`
	SaveLinks       *bool    `json:"save_links,omitempty"`
	ExtractMetadata *bool    `json:"extract_metadata,omitempty"`
	CrawlDelay      *float64 `json:"crawl_delay,omitempty"` // seconds
	UserAgent       string   `json:"user_agent,omitempty"`
}

func (b batchRequestBody) toModels() []models.CrawlRequest {
	shared := crawlRequestBody{
		MaxPages:        b.MaxPagesPerURL,
		Depth:           b.Depth,
		FollowLinks:     b.FollowLinks,
		SaveHTML:        b.SaveHTML,
		SaveLinks:       b.SaveLinks,
		ExtractMetadata: b.ExtractMetadata,
		CrawlDelay:      b.CrawlDelay,
		UserAgent:       b.UserAgent,
	}
	reqs := make([]models.CrawlRequest, 0, len(b.URLs))
	for _, u := range b.URLs {
		shared.URL = u
		reqs = append(reqs, shared.toModel())
	}
	return reqs
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Website Analyzer API is running",
	})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var body crawlRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.orch.RunCrawl(r.Context(), body.toModel())
	if err != nil {
		// Input errors are hard failures, distinct from failed runs
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.persist(&result)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCrawlBackground(w http.ResponseWriter, r *http.Request) {
	var body crawlRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job := s.jobs.Submit(body.toModel())
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleCrawlBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(body.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}

	result := s.batch.RunBatch(r.Context(), body.toModels())
	for i := range result.Runs {
		s.persist(&result.Runs[i])
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCrawlBatchBackground(w http.ResponseWriter, r *http.Request) {
	var body batchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(body.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}

	job := s.jobs.SubmitBatch(body.toModels())
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	list := s.jobs.List()
	if list == nil {
		list = []*jobs.Job{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if !s.jobs.Cancel(r.PathValue("id")) {
		s.writeError(w, http.StatusNotFound, "job not found or already finished")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotImplemented, "persistence is disabled")
		return
	}
	records, err := s.store.ListRuns()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []storage.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotImplemented, "persistence is disabled")
		return
	}
	result, err := s.store.GetRun(r.PathValue("id"))
	if errors.Is(err, storage.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// persist saves a finished run if a store is configured. Persistence
// failures are logged, never surfaced: the in-memory result is the
// contract.
func (s *Server) persist(result *models.CrawlRunResult) {
	if s.store == nil {
		return
	}
	if _, err := s.store.SaveRun(result); err != nil {
		s.log.Warnf("Failed to persist run for seed '%s': %v", result.Seed, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
