// Package api exposes the forecast service over HTTP: the predict
// endpoint, health endpoints, Prometheus metrics, and the audit capture
// middleware threaded around every request.
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sales-forecast-api/internal/audit"
	"sales-forecast-api/internal/forecast"
	"sales-forecast-api/internal/metrics"
)

// Server holds the handler dependencies.
type Server struct {
	svc *forecast.Service
	m   *metrics.Metrics
}

// NewServer returns a Server delegating business logic to svc. m may be
// nil.
func NewServer(svc *forecast.Service, m *metrics.Metrics) *Server {
	return &Server{svc: svc, m: m}
}

// Router assembles the chi router. The capture middleware sits outside
// the recoverer so that even panicking handlers leave an audit entry
// with the 500 response the recoverer produced.
func (s *Server) Router(auditLogger *audit.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.countRequests)
	r.Use(Capture(auditLogger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/predict", s.handlePredict)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Model API is running"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.m != nil {
			s.m.RequestsTotal.Inc()
		}
		next.ServeHTTP(w, r)
	})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError mirrors the {"detail": ...} error body shape of the
// original service so existing clients keep working.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
