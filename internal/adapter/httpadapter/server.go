// Package httpadapter serves the health, metrics and route inspection
// endpoints of the evacuation router.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

// OutcomeLister returns the per-city results of the most recent run.
type OutcomeLister interface {
	LastOutcomes() []domain.Outcome
}

// Server exposes health, readiness, metrics and route HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /routes. Metrics are served from gatherer.
func NewServer(addr string, ready sharedobs.ReadinessChecker, outcomes OutcomeLister, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /routes", handleRoutes(outcomes))

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

// outcomeView is the JSON shape of one city on /routes.
type outcomeView struct {
	City     string            `json:"city"`
	State    string            `json:"state"`
	Attempts int               `json:"attempts,omitempty"`
	Error    string            `json:"error,omitempty"`
	RunID    string            `json:"run_id,omitempty"`
	Cost     float64           `json:"cost,omitempty"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}

type routesResponse struct {
	Cities   int           `json:"cities"`
	Routed   int           `json:"routed"`
	Outcomes []outcomeView `json:"outcomes"`
}

func handleRoutes(lister OutcomeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		outcomes := lister.LastOutcomes()
		resp := routesResponse{Cities: len(outcomes), Outcomes: make([]outcomeView, 0, len(outcomes))}
		for _, o := range outcomes {
			v := outcomeView{City: o.City, State: string(o.State), Attempts: o.Attempts}
			if o.Err != nil {
				v.Error = o.Err.Error()
			}
			if o.Routed() {
				resp.Routed++
				v.RunID = o.Route.RunID
				v.Cost = o.Route.Cost
				v.Geometry = geojson.NewGeometry(o.Route.Coordinates)
			}
			resp.Outcomes = append(resp.Outcomes, v)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
