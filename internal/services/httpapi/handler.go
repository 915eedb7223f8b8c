// Package httpapi exposes the wake authority over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fgeck/wolproxy/internal/metrics"
	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/authority"
	"github.com/fgeck/wolproxy/internal/services/trace"
)

// CorrelationHeader carries the correlation id between client and
// service so both sides log the same identifier per call.
const CorrelationHeader = "X-Request-ID"

// durationHeader reports server-side processing time in milliseconds.
const durationHeader = "X-Request-Duration-Ms"

// Handler routes HTTP traffic to the wake authority.
type Handler struct {
	log       zerolog.Logger
	authority authority.Service
	metrics   *metrics.Metrics
	version   string
	now       func() time.Time
}

// NewHandler creates an HTTP handler for the given authority service.
func NewHandler(log zerolog.Logger, svc authority.Service, m *metrics.Metrics, version string) *Handler {
	return &Handler{
		log:       log,
		authority: svc,
		metrics:   m,
		version:   version,
		now:       time.Now,
	}
}

// Router builds the chi router with tracing and logging middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(h.recover)
	r.Use(h.correlate)
	r.Use(h.accessLog)

	r.Get("/wake", h.handleWake)
	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "HTTP method not allowed for this endpoint")
	})

	return r
}

// recover turns a panicking handler into the same structured JSON
// error body the explicit error paths produce. Details stay in the
// server log, never in the response.
func (h *Handler) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.log.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic while handling request")
				h.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// correlate assigns a correlation id per request, honoring an inbound
// X-Request-ID so a client-side tracer can join the two logs.
func (h *Handler) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = trace.NewCorrelationID()
		}

		w.Header().Set(CorrelationHeader, correlationID)

		ctx := trace.WithCorrelationID(r.Context(), correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := h.now().Sub(start)
		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), duration)

		h.log.Info().
			Str("correlation_id", trace.CorrelationID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", ww.Status()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

// handleWake serves GET /wake?id=<identifier>&key=<credential>.
func (h *Handler) handleWake(w http.ResponseWriter, r *http.Request) {
	started := h.now()

	req := models.WakeRequest{
		Identifier:    r.URL.Query().Get("id"),
		Credential:    r.URL.Query().Get("key"),
		CorrelationID: trace.CorrelationID(r.Context()),
		SourceAddr:    r.RemoteAddr,
	}

	result := h.authority.Submit(r.Context(), req)
	h.metrics.ObserveWakeRequest(string(result.Status))

	w.Header().Set(durationHeader, strconv.FormatInt(h.now().Sub(started).Milliseconds(), 10))
	h.writeJSON(w, result.Status.HTTPStatus(), result)
}

// handleHealth serves GET /health. No authentication; succeeds
// whenever the process is alive.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": models.FormatTimestamp(h.now()),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	h.writeJSON(w, status, map[string]string{
		"status":    "error",
		"code":      code,
		"message":   msg,
		"timestamp": models.FormatTimestamp(h.now()),
	})
}
