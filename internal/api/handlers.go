package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"hypewatch/internal/model"
	"hypewatch/internal/store"
)

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ClaimFilter{
		Topic:          q.Get("topic"),
		Author:         q.Get("author"),
		AuthorCategory: q.Get("category"),
		Kind:           model.ClaimKind(q.Get("kind")),
		Search:         q.Get("search"),
		Limit:          intParam(q.Get("limit"), 50),
		Offset:         intParam(q.Get("offset"), 0),
	}
	if days := intParam(q.Get("days"), 0); days > 0 {
		filter.Since = time.Now().UTC().AddDate(0, 0, -days)
	}

	claims, err := s.store.QueryClaims(r.Context(), filter)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if claims == nil {
		claims = []model.ExtractedClaim{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"claims": claims,
		"count":  len(claims),
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	days := intParam(r.URL.Query().Get("days"), 7)
	counts, err := s.store.TopicCounts(r.Context(), days)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"topics": counts,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""
	srcs, err := s.store.ListSources(r.Context(), activeOnly)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if srcs == nil {
		srcs = []model.Source{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"sources": srcs})
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	predictions, err := s.store.ListPredictions(r.Context(), q.Get("author"), intParam(q.Get("limit"), 50))
	if err != nil {
		s.serverError(w, err)
		return
	}
	if predictions == nil {
		predictions = []model.Prediction{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": predictions})
}

func (s *Server) handlePredictionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.PredictionAccuracyStats(r.Context(), r.URL.Query().Get("author"))
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSynthesisLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestSynthesisRun(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no synthesis run yet")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSynthesisHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.SynthesisHistory(r.Context(), intParam(r.URL.Query().Get("limit"), 20))
	if err != nil {
		s.serverError(w, err)
		return
	}
	if runs == nil {
		runs = []model.SynthesisRun{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
