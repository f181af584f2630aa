// Package planner turns observations and safe zones into evacuation routes:
// it fetches a road network around each city, weights it with the hazard cost
// model and runs a shortest-path search to the city's safe zone.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/graph"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

// Planning defaults.
const (
	DefaultHalfExtent  = 0.05
	DefaultConcurrency = 4

	// minConnectorFactor keeps connector edges positive when a strongly
	// negative risk score would otherwise cancel the +1 offset.
	minConnectorFactor = 0.1
)

// NetworkProvider fetches the road network inside a square bounding box of
// side 2×halfExtent degrees around center. An empty graph is valid and makes
// the planner fall back to direct city connections.
type NetworkProvider interface {
	FetchNetwork(ctx context.Context, center orb.Point, halfExtent float64) (*graph.Graph, error)
}

// Options tunes a Planner. Zero values fall back to the package defaults.
type Options struct {
	HalfExtent  float64
	Concurrency int
	Retry       RetryPolicy
	// Clock stamps computed routes. Defaults to Retry.Clock.
	Clock clockwork.Clock
}

// Planner computes one evacuation route per city. It is safe for concurrent
// use; every city gets its own graph.
type Planner struct {
	provider NetworkProvider
	surface  *domain.RiskSurface
	cost     domain.CostModel
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Planner over a read-only risk surface.
func New(provider NetworkProvider, surface *domain.RiskSurface, cost domain.CostModel, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Planner {
	if opts.HalfExtent <= 0 {
		opts.HalfExtent = DefaultHalfExtent
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	opts.Retry = opts.Retry.withDefaults()
	if opts.Clock == nil {
		opts.Clock = opts.Retry.Clock
	}
	return &Planner{
		provider: provider,
		surface:  surface,
		cost:     cost,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// PlanAll plans every observation concurrently and returns outcomes in input
// order. Per-city failures are reported in the outcomes; the error is non-nil
// only when ctx is cancelled.
func (p *Planner) PlanAll(ctx context.Context, observations []domain.Observation, zones map[string]domain.SafeZone) ([]domain.Outcome, error) {
	p.metrics.PlannerRunning.Set(1)
	defer p.metrics.PlannerRunning.Set(0)

	outcomes := make([]domain.Outcome, len(observations))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, o := range observations {
		g.Go(func() error {
			outcomes[i] = p.Plan(ctx, o, zones)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, ctx.Err()
}

// Plan runs the per-city state machine and always returns a terminal outcome.
func (p *Planner) Plan(ctx context.Context, o domain.Observation, zones map[string]domain.SafeZone) domain.Outcome {
	out := p.plan(ctx, o, zones)
	p.metrics.CitiesProcessed.WithLabelValues(string(out.State)).Inc()

	if out.Routed() {
		p.logger.Info("route computed",
			"city", o.City,
			"points", len(out.Route.Coordinates),
			"cost", out.Route.Cost,
		)
	} else {
		p.logger.Warn("city skipped",
			"city", o.City,
			"state", out.State,
			"attempts", out.Attempts,
			"error", out.Err,
		)
	}
	return out
}

func (p *Planner) plan(ctx context.Context, o domain.Observation, zones map[string]domain.SafeZone) domain.Outcome {
	zone, ok := zones[o.City]
	if !ok {
		return domain.Outcome{
			City:  o.City,
			State: domain.StateNoSafeZone,
			Err:   fmt.Errorf("city %q: %w", o.City, domain.ErrInputMissing),
		}
	}

	g, res := p.fetch(ctx, o)
	if !res.OK() {
		return domain.Outcome{
			City:     o.City,
			State:    domain.StateFetchFailed,
			Attempts: res.Attempts,
			Err:      fmt.Errorf("%w after %d attempts: %w", domain.ErrNetworkFetch, res.Attempts, res.Err),
		}
	}

	origin, dest, err := p.connect(g, o, zone)
	if err != nil {
		return domain.Outcome{City: o.City, State: domain.StateNoPath, Attempts: res.Attempts, Err: err}
	}
	p.cost.Annotate(g)
	p.metrics.GraphNodes.Observe(float64(g.NodeCount()))

	path, cost, found := g.ShortestPath(origin, dest)
	if !found {
		return domain.Outcome{
			City:     o.City,
			State:    domain.StateNoPath,
			Attempts: res.Attempts,
			Err:      fmt.Errorf("city %q: %w", o.City, domain.ErrNoPath),
		}
	}

	coords := make(orb.LineString, 0, len(path))
	for _, n := range path {
		coords = append(coords, n.Pos)
	}
	if len(coords) == 1 {
		// City and safe zone share a road junction.
		coords = append(coords, coords[0])
	}
	coords[0] = o.Point()
	coords[len(coords)-1] = zone.Point()

	return domain.Outcome{
		City:     o.City,
		State:    domain.StateRouted,
		Attempts: res.Attempts,
		Route: &domain.Route{
			City:        o.City,
			Coordinates: coords,
			Cost:        cost,
			ComputedAt:  p.opts.Clock.Now().UTC(),
		},
	}
}

// fetch requests the road network through the retry policy, logging one
// warning per failed attempt. Plan logs the final skip notice.
func (p *Planner) fetch(ctx context.Context, o domain.Observation) (*graph.Graph, RetryResult) {
	attempt := func(ctx context.Context, _ int) (*graph.Graph, error) {
		start := time.Now()
		g, err := p.provider.FetchNetwork(ctx, o.Point(), p.opts.HalfExtent)
		p.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		if err == nil && g == nil {
			err = errors.New("provider returned no graph")
		}
		if err != nil {
			p.metrics.FetchAttempts.WithLabelValues("error").Inc()
			return nil, err
		}
		p.metrics.FetchAttempts.WithLabelValues("success").Inc()
		return g, nil
	}
	onFailure := func(n int, err error) {
		p.logger.Warn("network fetch attempt failed",
			"city", o.City,
			"attempt", n,
			"max_attempts", p.opts.Retry.MaxAttempts,
			"error", err,
		)
	}

	return Retry(ctx, p.opts.Retry, attempt, onFailure)
}

// connect inserts the city and safe-zone nodes and returns their IDs. With a
// road network they are attached to the nearest junction; without one every
// observed city is connected pairwise and the city is linked to its own zone.
func (p *Planner) connect(g *graph.Graph, o domain.Observation, zone domain.SafeZone) (origin, dest int64, err error) {
	if g.CountKind(graph.RoadJunction) == 0 {
		return p.connectDirect(g, o, zone)
	}

	origin, err = attach(g, o.Point(), graph.City, o.City, o.ConnectorRisk())
	if err != nil {
		return 0, 0, err
	}
	dest, err = attach(g, zone.Point(), graph.SafeZone, zone.ID, zone.RiskScore)
	if err != nil {
		return 0, 0, err
	}
	return origin, dest, nil
}

// attach returns the road junction at pos, or inserts a new node there linked
// to the nearest junction.
func attach(g *graph.Graph, pos orb.Point, kind graph.NodeKind, label string, risk float64) (int64, error) {
	if n, ok := g.RoadNodeAt(pos); ok {
		return n.ID, nil
	}
	nearest, ok := g.NearestRoadNode(pos)
	if !ok {
		return 0, fmt.Errorf("attach %s: %w", label, domain.ErrNoPath)
	}

	id := g.NextSyntheticID()
	g.AddNode(graph.Node{ID: id, Pos: pos, Kind: kind, Label: label, Risk: risk})
	if err := g.AddEdge(id, nearest.ID, connectorLength(pos, nearest.Pos, risk)); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *Planner) connectDirect(g *graph.Graph, o domain.Observation, zone domain.SafeZone) (origin, dest int64, err error) {
	var cities []graph.Node
	for _, other := range p.surface.Observations() {
		if !other.HasCoordinates() {
			continue
		}
		n := graph.Node{
			ID:    g.NextSyntheticID(),
			Pos:   other.Point(),
			Kind:  graph.City,
			Label: other.City,
			Risk:  other.ConnectorRisk(),
		}
		if other.City == o.City {
			if origin != 0 {
				continue
			}
			origin = n.ID
		}
		g.AddNode(n)
		cities = append(cities, n)
	}
	if origin == 0 {
		origin = g.NextSyntheticID()
		n := graph.Node{ID: origin, Pos: o.Point(), Kind: graph.City, Label: o.City, Risk: o.ConnectorRisk()}
		g.AddNode(n)
		cities = append(cities, n)
	}

	for i := range cities {
		for j := i + 1; j < len(cities); j++ {
			a, b := cities[i], cities[j]
			length := planar.Distance(a.Pos, b.Pos) * max(connectorFactor(a.Risk), connectorFactor(b.Risk))
			if err := g.AddEdge(a.ID, b.ID, length); err != nil {
				return 0, 0, err
			}
		}
	}

	dest = g.NextSyntheticID()
	g.AddNode(graph.Node{ID: dest, Pos: zone.Point(), Kind: graph.SafeZone, Label: zone.ID, Risk: zone.RiskScore})
	if err := g.AddEdge(origin, dest, connectorLength(o.Point(), zone.Point(), o.ConnectorRisk())); err != nil {
		return 0, 0, err
	}
	return origin, dest, nil
}

// connectorLength is the Euclidean degree distance scaled by the risk of the
// node being inserted.
func connectorLength(a, b orb.Point, risk float64) float64 {
	return planar.Distance(a, b) * connectorFactor(risk)
}

func connectorFactor(risk float64) float64 {
	if math.IsNaN(risk) || math.IsInf(risk, 0) {
		return 1
	}
	return max(risk+1, minConnectorFactor)
}
