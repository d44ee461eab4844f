// Package server exposes package checks over HTTP.
//
//	POST /v1/check    {"packages": ["express@^4", "@types/node"]}
//	GET  /v1/pending  ledger entries waiting for a re-run (?all=1 lists all)
//	GET  /healthz
//
// A check answers only once every requested package has reached a final
// outcome, which may include waiting for a caching workflow run.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/stackgate/pkg/buildinfo"
	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/history"
	"github.com/matzehuels/stackgate/pkg/pipeline"
)

const (
	// MaxPackages bounds one check request.
	MaxPackages = 100

	maxBodyBytes = 64 << 10
)

// Checker runs a batch of package checks. *pipeline.Runner implements it.
type Checker interface {
	Run(ctx context.Context, reqs []pipeline.Request) *pipeline.Batch
}

// Server serves the HTTP API.
type Server struct {
	checker Checker
	store   history.Store
	logger  *log.Logger
}

// New creates a Server. A nil store serves an empty ledger and a nil
// logger discards output.
func New(checker Checker, store history.Store, logger *log.Logger) *Server {
	if store == nil {
		store = history.NewNullStore()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{checker: checker, store: store, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(limitBody)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(api chi.Router) {
		api.Post("/check", s.check)
		api.Get("/pending", s.pending)
	})
	return r
}

type checkRequest struct {
	Packages []string `json:"packages"`
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	var body checkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if len(body.Packages) == 0 {
		writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "packages must not be empty"))
		return
	}
	if len(body.Packages) > MaxPackages {
		writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "at most %d packages per request", MaxPackages))
		return
	}
	reqs, err := pipeline.ParseRequests(body.Packages)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batch := s.checker.Run(r.Context(), reqs)
	s.logger.Info("check served",
		"request_id", middleware.GetReqID(r.Context()),
		"batch", batch.ID,
		"packages", len(reqs),
		"ok", batch.OK())
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	list := s.store.Pending
	if all := r.URL.Query().Get("all"); all == "1" || all == "true" {
		list = s.store.List
	}
	entries, err := list(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrap(errors.ErrCodeInternal, err, "read history"))
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, map[string]string{"code": string(code), "error": errors.UserMessage(err)})
}
