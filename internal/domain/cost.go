package domain

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-data-evacuation/internal/graph"
)

// MinBaseLength replaces zero or negative edge lengths so every annotated
// weight stays strictly positive.
const MinBaseLength = 1e-6

// hazardMultiplier scores one hazard for a matched observation. Every
// multiplier returns at least 1.
type hazardMultiplier func(Observation) float64

// riskMultiplier penalizes edges by the categorical risk level.
func riskMultiplier(o Observation) float64 {
	switch o.RiskLevel {
	case RiskHigh:
		return 100
	case RiskMedium:
		return 10
	default:
		return 1
	}
}

// floodMultiplier grows with precipitation.
func floodMultiplier(o Observation) float64 {
	return 1 + o.PrecipitationMM/10
}

// cycloneMultiplier grows with wind speed.
func cycloneMultiplier(o Observation) float64 {
	return 1 + o.WindSpeedKPH/20
}

// quakeMultiplier is a placeholder tied to the risk level. No seismic signal
// is observed, so it is not a physical model.
func quakeMultiplier(o Observation) float64 {
	switch o.RiskLevel {
	case RiskHigh:
		return 50
	case RiskMedium:
		return 10
	default:
		return 1
	}
}

var hazardMultipliers = []hazardMultiplier{
	riskMultiplier,
	floodMultiplier,
	cycloneMultiplier,
	quakeMultiplier,
}

// HazardMultiplier returns the worst of the hazard multipliers for o. A single
// severe hazard dominates; benign ones never dilute it.
func HazardMultiplier(o Observation) float64 {
	worst := 1.0
	for _, m := range hazardMultipliers {
		v := m(o)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		worst = math.Max(worst, v)
	}
	return worst
}

// CostModel turns edge geometry into hazard-weighted traversal costs.
type CostModel struct {
	Surface   *RiskSurface
	Tolerance float64
}

// NewCostModel returns a model that matches edge midpoints within tolerance
// degrees. A non-positive tolerance falls back to DefaultMatchTolerance.
func NewCostModel(surface *RiskSurface, tolerance float64) CostModel {
	if tolerance <= 0 {
		tolerance = DefaultMatchTolerance
	}
	return CostModel{Surface: surface, Tolerance: tolerance}
}

// Multiplier returns the hazard multiplier at p. Points with no nearby
// observation are neutral.
func (m CostModel) Multiplier(p orb.Point) float64 {
	if m.Surface == nil {
		return 1
	}
	o, ok := m.Surface.LookupNear(p[0], p[1], m.Tolerance)
	if !ok {
		return 1
	}
	return HazardMultiplier(o)
}

// EdgeWeight computes base length times the hazard multiplier at the midpoint
// of a and b.
func (m CostModel) EdgeWeight(baseLength float64, a, b orb.Point) float64 {
	if math.IsNaN(baseLength) || math.IsInf(baseLength, 0) || baseLength < MinBaseLength {
		baseLength = MinBaseLength
	}
	mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
	return baseLength * m.Multiplier(mid)
}

// Annotate rewrites the weight of every edge in g.
func (m CostModel) Annotate(g *graph.Graph) {
	g.ForEachEdge(func(e *graph.Edge, a, b graph.Node) {
		e.Weight = m.EdgeWeight(e.BaseLength, a.Pos, b.Pos)
	})
}
