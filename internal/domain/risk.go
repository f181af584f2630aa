package domain

import (
	"fmt"
	"math"
)

// DefaultMatchTolerance is the bounding-box half width, in degrees, used to
// match a point to an observation (about 5.5 km).
const DefaultMatchTolerance = 0.05

// MatchPolicy decides which observation wins when several fall inside the
// bounding box around a lookup point.
type MatchPolicy int

const (
	// MatchNearest picks the closest match in degree space; ties keep the
	// earlier observation.
	MatchNearest MatchPolicy = iota
	// MatchLast picks the last match in load order.
	MatchLast
)

// ParseMatchPolicy accepts "nearest" and "last".
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch s {
	case "nearest", "":
		return MatchNearest, nil
	case "last":
		return MatchLast, nil
	default:
		return MatchNearest, fmt.Errorf("unknown match policy %q", s)
	}
}

func (p MatchPolicy) String() string {
	if p == MatchLast {
		return "last"
	}
	return "nearest"
}

// RiskSurface is a read-only lookup from a position to the hazard attributes
// observed near it. Build it once per run and share it freely.
type RiskSurface struct {
	observations []Observation
	byCity       map[string]int
	policy       MatchPolicy
}

// NewRiskSurface copies the observations so later changes by the caller do not
// leak into lookups.
func NewRiskSurface(observations []Observation, policy MatchPolicy) *RiskSurface {
	obs := append([]Observation(nil), observations...)
	byCity := make(map[string]int, len(obs))
	for i, o := range obs {
		if _, ok := byCity[o.City]; !ok {
			byCity[o.City] = i
		}
	}
	return &RiskSurface{observations: obs, byCity: byCity, policy: policy}
}

// LookupNear returns the observation whose position is within tolerance
// degrees of (lon, lat) on both axes.
func (s *RiskSurface) LookupNear(lon, lat, tolerance float64) (Observation, bool) {
	var (
		match    Observation
		found    bool
		bestDist = math.Inf(1)
	)
	for _, o := range s.observations {
		dLon := math.Abs(lon - o.Lon)
		dLat := math.Abs(lat - o.Lat)
		if dLon > tolerance || dLat > tolerance {
			continue
		}
		switch s.policy {
		case MatchLast:
			match, found = o, true
		default:
			if d := dLon*dLon + dLat*dLat; d < bestDist {
				match, found, bestDist = o, true, d
			}
		}
	}
	return match, found
}

// City returns the observation for a city key.
func (s *RiskSurface) City(name string) (Observation, bool) {
	i, ok := s.byCity[name]
	if !ok {
		return Observation{}, false
	}
	return s.observations[i], true
}

// Observations returns the observations in load order.
func (s *RiskSurface) Observations() []Observation {
	return append([]Observation(nil), s.observations...)
}

func (s *RiskSurface) Len() int { return len(s.observations) }
