// Package api exposes the read/query surface and the manual pipeline
// triggers over HTTP. The API is a local operator surface, bound to
// loopback by default.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hypewatch/internal/model"
	"hypewatch/internal/pipeline"
	"hypewatch/internal/store"
)

// Pipeline is the trigger surface the API drives. Trigger methods reserve the
// operation before returning, so a conflict is known when the response is
// written.
type Pipeline interface {
	Operations() *pipeline.Operations
	TriggerFetchAll() error
	TriggerProcess() error
	TriggerSynthesize(periodDays int, withDigest bool) error
}

// Server is the HTTP API server.
type Server struct {
	store  *store.Store
	pipe   Pipeline
	logger *zap.Logger
	http   *http.Server
}

// NewServer builds the server and its routes.
func NewServer(st *store.Store, pipe Pipeline, cfg model.APIConfig, logger *zap.Logger) *Server {
	s := &Server{store: st, pipe: pipe, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/claims", s.handleClaims)
		r.Get("/topics", s.handleTopics)
		r.Get("/sources", s.handleSources)
		r.Get("/predictions", s.handlePredictions)
		r.Get("/predictions/stats", s.handlePredictionStats)
		r.Get("/synthesis/latest", s.handleSynthesisLatest)
		r.Get("/synthesis/history", s.handleSynthesisHistory)
		r.Get("/status", s.handleStatus)

		r.Post("/fetch", s.trigger(pipeline.OpFetch, func() error {
			return s.pipe.TriggerFetchAll()
		}))
		r.Post("/process", s.trigger(pipeline.OpProcess, func() error {
			return s.pipe.TriggerProcess()
		}))
		r.Post("/synthesize", s.trigger(pipeline.OpSynthesize, func() error {
			return s.pipe.TriggerSynthesize(7, false)
		}))
	})

	listen := cfg.Listen
	if listen == "" {
		listen = "127.0.0.1:8642"
	}
	s.http = &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	running := s.pipe.Operations().Running()
	out := make(map[string]string, len(running))
	for name, since := range running {
		out[name] = since.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"running": out})
}

// trigger starts a pipeline operation in the background. The operation slot
// is taken before the response is written, so a second trigger while the
// operation runs gets an authoritative 409.
func (s *Server) trigger(name string, start func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := start(); err != nil {
			if errors.Is(err, pipeline.ErrAlreadyRunning) {
				s.writeError(w, http.StatusConflict, "operation already running")
				return
			}
			s.logger.Warn("trigger failed", zap.String("operation", name), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		s.writeJSON(w, http.StatusAccepted, map[string]string{"operation": name, "status": "started"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
