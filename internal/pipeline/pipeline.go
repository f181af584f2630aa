// Package pipeline runs one evacuation planning batch: load observations,
// resolve safe zones, plan every city and persist the routes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
	"github.com/couchcryptid/storm-data-evacuation/internal/planner"
)

// ObservationSource reads the per-city observations for a run.
type ObservationSource interface {
	LoadObservations(ctx context.Context) ([]domain.Observation, error)
}

// SafeZoneSource reads precomputed or pinned safe zones.
type SafeZoneSource interface {
	LoadSafeZones(ctx context.Context) ([]domain.SafeZone, error)
}

// SafeZoneSink records the safe zones a run used.
type SafeZoneSink interface {
	WriteSafeZones(ctx context.Context, zones []domain.SafeZone) error
}

// RouteSink persists the routes of a run, replacing those of the previous run.
type RouteSink interface {
	Name() string
	PersistRoutes(ctx context.Context, routes []domain.Route) error
}

// RouteClearer is implemented by sinks that can remove the previous run's
// output when a run produces no routes.
type RouteClearer interface {
	ClearRoutes(ctx context.Context) error
}

// SinkPinger is implemented by connection-backed sinks. CheckReadiness pings
// them.
type SinkPinger interface {
	Ping(ctx context.Context) error
}

// Deps are the adapters a Pipeline reads from and writes to. Observations,
// Network and Store are required.
type Deps struct {
	Observations ObservationSource
	SafeZones    SafeZoneSource // nil: select zones from observations
	Overrides    SafeZoneSource
	SafeZoneSink SafeZoneSink
	Network      planner.NetworkProvider
	Geocoder     domain.Geocoder
	Store        RouteSink   // written first
	Sinks        []RouteSink // written after Store
}

// Config holds the planning parameters of a run.
type Config struct {
	Selector  domain.Selector
	Policy    domain.MatchPolicy
	Tolerance float64
	Planner   planner.Options
}

// Summary describes a completed run.
type Summary struct {
	RunID    string
	Cities   int
	Routed   int
	ByState  map[domain.OutcomeState]int
	Duration time.Duration
}

// Pipeline orchestrates a load-plan-persist batch.
type Pipeline struct {
	deps     Deps
	cfg      Config
	preparer *Preparer
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	mu   sync.RWMutex
	last []domain.Outcome
}

// New creates a Pipeline with the given adapters and observability.
func New(deps Deps, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.Selector.RadiusKM <= 0 {
		cfg.Selector = domain.NewSelector(0)
	}
	return &Pipeline{
		deps:     deps,
		cfg:      cfg,
		preparer: NewPreparer(deps.Geocoder, logger, metrics),
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has persisted routes and every
// connection-backed sink answers a ping, or an error describing why the
// service is not ready.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if !p.ready.Load() {
		return errors.New("no evacuation routes have been persisted yet")
	}
	for _, sink := range p.deps.Sinks {
		pinger, ok := sink.(SinkPinger)
		if !ok {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("%s unreachable: %w", sink.Name(), err)
		}
	}
	return nil
}

// LastOutcomes returns the per-city outcomes of the most recent run.
func (p *Pipeline) LastOutcomes() []domain.Outcome {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Outcome(nil), p.last...)
}

// Run executes one batch. It returns domain.ErrNoRoutes when no city could
// be routed and wraps domain.ErrSerialization when any sink fails. Per-city
// failures are only reported in the summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString(), ByState: make(map[domain.OutcomeState]int)}
	logger := p.logger.With("run_id", summary.RunID)
	logger.Info("run started")

	rows, err := p.deps.Observations.LoadObservations(ctx)
	if err != nil {
		return summary, fmt.Errorf("load observations: %w", err)
	}
	observations := p.preparer.Prepare(ctx, rows)
	summary.Cities = len(observations)
	logger.Info("observations loaded", "rows", len(rows), "cities", len(observations))

	zones, ordered, err := p.resolveSafeZones(ctx, observations)
	if err != nil {
		return summary, err
	}
	if p.deps.SafeZoneSink != nil {
		if err := p.deps.SafeZoneSink.WriteSafeZones(ctx, ordered); err != nil {
			return summary, fmt.Errorf("%w: safe zones: %w", domain.ErrSerialization, err)
		}
	}

	surface := domain.NewRiskSurface(observations, p.cfg.Policy)
	cost := domain.NewCostModel(surface, p.cfg.Tolerance)
	pl := planner.New(p.deps.Network, surface, cost, p.cfg.Planner, logger, p.metrics)

	outcomes, err := pl.PlanAll(ctx, observations, zones)
	if err != nil {
		return summary, fmt.Errorf("plan routes: %w", err)
	}
	for _, o := range outcomes {
		summary.ByState[o.State]++
		if o.Route != nil {
			o.Route.RunID = summary.RunID
		}
	}
	p.setLast(outcomes)

	routes := domain.RoutesFrom(outcomes)
	summary.Routed = len(routes)

	if len(routes) == 0 {
		p.clearStale(ctx, logger)
		summary.Duration = time.Since(start)
		return summary, domain.ErrNoRoutes
	}

	for _, sink := range append([]RouteSink{p.deps.Store}, p.deps.Sinks...) {
		if err := sink.PersistRoutes(ctx, routes); err != nil {
			return summary, fmt.Errorf("%w: %s: %w", domain.ErrSerialization, sink.Name(), err)
		}
		p.metrics.RoutesPersisted.WithLabelValues(sink.Name()).Add(float64(len(routes)))
	}

	summary.Duration = time.Since(start)
	p.metrics.BatchDuration.Observe(summary.Duration.Seconds())
	p.metrics.LastSuccessfulRun.SetToCurrentTime()
	p.ready.Store(true)

	logger.Info("run complete",
		"cities", summary.Cities,
		"routed", summary.Routed,
		"skipped", summary.Cities-summary.Routed,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (p *Pipeline) setLast(outcomes []domain.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = outcomes
}

// clearStale removes the previous run's output so it is not mistaken for the
// result of this one.
func (p *Pipeline) clearStale(ctx context.Context, logger *slog.Logger) {
	logger.Error("no city could be routed, skipping route output")
	for _, sink := range append([]RouteSink{p.deps.Store}, p.deps.Sinks...) {
		c, ok := sink.(RouteClearer)
		if !ok {
			continue
		}
		if err := c.ClearRoutes(ctx); err != nil {
			logger.Warn("clear stale routes failed", "sink", sink.Name(), "error", err)
		}
	}
}
