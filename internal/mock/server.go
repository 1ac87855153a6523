package mock

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler serves the calls REST API backed by s.
func Handler(s *Store, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api/calls", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			res, err := s.List(r.Context(), calls.ListParams{
				Page:   atoiOr(q.Get("page"), 1),
				Limit:  atoiOr(q.Get("limit"), 10),
				Status: q.Get("status"),
				From:   q.Get("from"),
				To:     q.Get("to"),
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in calls.Call
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
				return
			}
			in.ID = ""
			in.Status = calls.StatusScheduled
			in.StartedAt, in.EndedAt = nil, nil
			if in.ScheduledAt.IsZero() {
				in.ScheduledAt = time.Now().UTC()
			}
			writeJSON(w, http.StatusCreated, s.Add(in))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			c, err := s.Get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		})
		r.Get("/{id}/transcript", func(w http.ResponseWriter, r *http.Request) {
			tr, err := s.Transcript(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, tr)
		})
		r.Post("/{id}/start", func(w http.ResponseWriter, r *http.Request) {
			c, err := s.Start(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		})
		r.Post("/{id}/finish", func(w http.ResponseWriter, r *http.Request) {
			c, err := s.Finish(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		})
	})
	return r
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, calls.ErrNotAvailable):
		status, code = http.StatusNotFound, "not_available"
	case errors.Is(err, calls.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, calls.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, ErrInvalidDate):
		status, code = http.StatusBadRequest, "invalid_date"
	case errors.Is(err, context.Canceled):
		// The client went away; the status is never seen.
		status, code = http.StatusServiceUnavailable, "canceled"
	}
	writeJSON(w, status, map[string]any{"error": err.Error(), "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
