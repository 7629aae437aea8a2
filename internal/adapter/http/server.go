package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverwatch/flood-risk-service/internal/domain"
	"github.com/riverwatch/flood-risk-service/internal/pipeline"
)

// maxForecastHours caps the forecast horizon a client may request.
const maxForecastHours = 168

// RiskService exposes the assessment state served by the dashboard routes.
// Implemented by pipeline.Pipeline.
type RiskService interface {
	CheckReadiness(ctx context.Context) error
	Dashboard() pipeline.Dashboard
	Watersheds() []domain.WatershedSnapshot
	Forecast(hoursAhead int) domain.ForecastResult
	CriticalPeriod() *domain.CriticalPeriodEstimate
}

// Server exposes the dashboard API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer     *http.Server
	service        RiskService
	defaultHorizon int
	logger         *slog.Logger
}

// NewServer creates the HTTP server with all service routes.
func NewServer(addr string, service RiskService, defaultHorizon int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:        service,
		defaultHorizon: defaultHorizon,
		logger:         logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/v1/watersheds", s.handleWatersheds)
	mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/critical-period", s.handleCriticalPeriod)
	mux.HandleFunc("POST /api/v1/risk/score", s.handleScore)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Dashboard())
}

func (s *Server) handleWatersheds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"watersheds": s.service.Watersheds(),
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	hours := s.defaultHorizon
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxForecastHours {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "hours must be an integer between 1 and 168",
			})
			return
		}
		hours = parsed
	}

	writeJSON(w, http.StatusOK, s.service.Forecast(hours))
}

func (s *Server) handleCriticalPeriod(w http.ResponseWriter, _ *http.Request) {
	period := s.service.CriticalPeriod()
	if period == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"predicted": false})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Predicted bool `json:"predicted"`
		*domain.CriticalPeriodEstimate
	}{true, period})
}

// handleScore runs the composite scorer on a caller-supplied measurement.
// Absent fields keep the documented baselines.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	measurement := domain.DefaultMeasurement()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&measurement); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid measurement: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, domain.ComputeRisk(measurement))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
