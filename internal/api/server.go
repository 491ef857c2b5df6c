package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tkrnews/newsgather/internal/app"
	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/metrics"
)

const (
	ServiceName = "TKR News Gatherer"
	Version     = "0.1.0"

	maxBodyBytes = 1 << 20
)

// Server exposes the pipeline over HTTP.
type Server struct {
	svc        *app.Service
	dispatcher *Dispatcher
	mux        *http.ServeMux
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewServer(svc *app.Service, log *slog.Logger, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.Global
	}
	s := &Server{
		svc:        svc,
		dispatcher: NewDispatcher(svc, log),
		mux:        http.NewServeMux(),
		logger:     logger.Component(log, "api_server"),
		metrics:    m,
		now:        time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	// News
	s.mux.HandleFunc("GET /provinces", s.handleProvinces)
	s.mux.HandleFunc("GET /news/{province}", s.handleGetNews)
	s.mux.HandleFunc("POST /news", s.handlePostNews)

	// Processing
	s.mux.HandleFunc("POST /process", s.handleProcess)
	s.mux.HandleFunc("GET /process/{province}/{host_type}", s.handleProcessLatest)

	s.mux.HandleFunc("POST /pipeline/{province}", s.handlePipeline)

	s.mux.HandleFunc("POST /scrape", s.handleScrape)

	// Job envelope, same shape as the serverless handler
	s.mux.HandleFunc("POST /run", s.handleRun)
}

// Handler returns the routed handler wrapped in logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.withRecovery(s.mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"service":   ServiceName,
		"version":   Version,
		"status":    "healthy",
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.metrics.GetStats()
	info := s.svc.Info()

	status := "healthy"
	if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
		status = "degraded"
	}

	llmStatus := "no_api_key"
	if info.LLMConfigured {
		llmStatus = "available"
	}
	storeStatus := "disabled"
	if info.StoreBackend != "" && info.StoreBackend != "none" {
		storeStatus = info.StoreBackend
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"service":    ServiceName,
		"version":    Version,
		"status":     status,
		"timestamp":  s.now().UTC(),
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
		"components": map[string]any{
			"api":     "healthy",
			"llm":     llmStatus,
			"store":   storeStatus,
			"sources": info.Sources,
		},
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, Request{Action: string(ActionGetProvinces)})
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	req := Request{Action: string(ActionGetNews), Province: r.PathValue("province")}
	q := r.URL.Query()
	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		s.errorResponse(w, err)
		return
	}
	if req.Scrape, err = boolParam(q.Get("scrape")); err != nil {
		s.errorResponse(w, err)
		return
	}
	for param, dst := range map[string]*bool{"save_to_db": &req.SaveToDB, "save_to_local": &req.SaveToLocal} {
		save, err := boolParam(q.Get(param))
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		if save != nil {
			*dst = *save
		}
	}
	s.run(w, r, req)
}

func (s *Server) handlePostNews(w http.ResponseWriter, r *http.Request) {
	s.runBody(w, r, ActionGetNews)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.runBody(w, r, ActionProcessNews)
}

// handleProcessLatest fetches, scrapes and narrates a province's news and
// returns only the narrated articles.
func (s *Server) handleProcessLatest(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	out, err := s.dispatcher.Handle(r.Context(), Request{
		Action:   string(ActionFetchAndProcess),
		Province: r.PathValue("province"),
		HostType: r.PathValue("host_type"),
		Limit:    limit,
	})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out.(*app.CombinedResult).Processed)
}

// handlePipeline fetches once and narrates with each host_types entry
// (repeated or comma separated; all personalities when absent).
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	scrape, err := boolParam(q.Get("scrape"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	var hosts []string
	for _, v := range q["host_types"] {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
	}
	s.run(w, r, Request{
		Action:    string(ActionRunPipeline),
		Province:  r.PathValue("province"),
		HostTypes: hosts,
		Limit:     limit,
		Scrape:    scrape,
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	s.runBody(w, r, ActionScrapeURLs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var job Job
	if err := s.decode(w, r, &job); err != nil {
		s.errorResponse(w, err)
		return
	}
	resp := s.dispatcher.Dispatch(r.Context(), job.Input)
	s.jsonResponse(w, http.StatusOK, JobResult{ID: job.ID, Response: resp})
}

// runBody decodes a Request body and runs it as action, whatever action
// the body names.
func (s *Server) runBody(w http.ResponseWriter, r *http.Request, action Action) {
	var req Request
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	req.Action = string(action)
	s.run(w, r, req)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, req Request) {
	out, err := s.dispatcher.Handle(r.Context(), req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", app.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code >= 500 {
		s.logger.Error("request failed", "status", code, "error", err)
	} else {
		s.logger.Warn("request rejected", "status", code, "error", err)
	}
	s.jsonResponse(w, code, Response{Status: statusError, Error: err.Error()})
}

func intParam(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", app.ErrInvalidInput, v)
	}
	return &n, nil
}

func boolParam(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a boolean", app.ErrInvalidInput, v)
	}
	return &b, nil
}
