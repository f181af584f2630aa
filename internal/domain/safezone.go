package domain

import (
	"strings"

	"github.com/paulmach/orb"
)

const (
	// DefaultSafeZoneRadiusKM is how far from the city centre candidate safe
	// zones are placed.
	DefaultSafeZoneRadiusKM = 20.0

	// KMPerDegree is the flat conversion used for safe-zone offsets.
	KMPerDegree = 111.0

	// diagonal scales both axes of the intercardinal offsets.
	diagonal = 0.707

	// OverrideDirection labels safe zones pinned by configuration rather than
	// chosen by the selector.
	OverrideDirection = "Override"
)

// Direction is one of the eight compass headings a safe zone may lie in.
type Direction struct {
	Name string
	dLon float64
	dLat float64
}

// Directions is the fixed evaluation order. Ties keep the earliest entry.
var Directions = []Direction{
	{Name: "North", dLon: 0, dLat: 1},
	{Name: "NorthEast", dLon: diagonal, dLat: diagonal},
	{Name: "East", dLon: 1, dLat: 0},
	{Name: "SouthEast", dLon: diagonal, dLat: -diagonal},
	{Name: "South", dLon: 0, dLat: -1},
	{Name: "SouthWest", dLon: -diagonal, dLat: -diagonal},
	{Name: "West", dLon: -1, dLat: 0},
	{Name: "NorthWest", dLon: -diagonal, dLat: diagonal},
}

// SafeZone is the evacuation destination chosen for exactly one city.
type SafeZone struct {
	ID         string
	City       string
	Lat        float64
	Lon        float64
	Direction  string
	DistanceKM float64
	RiskScore  float64
}

// Point returns the safe zone position as (lon, lat).
func (z SafeZone) Point() orb.Point {
	return orb.Point{z.Lon, z.Lat}
}

// SafeZoneID is the identifier convention shared with the safe-zone files.
func SafeZoneID(city string) string {
	return "SafeZone_" + city
}

// Selector picks a safe zone per city from directional weather heuristics.
type Selector struct {
	RadiusKM float64
}

// NewSelector returns a selector placing zones radiusKM from each city. A
// non-positive radius falls back to DefaultSafeZoneRadiusKM.
func NewSelector(radiusKM float64) Selector {
	if radiusKM <= 0 {
		radiusKM = DefaultSafeZoneRadiusKM
	}
	return Selector{RadiusKM: radiusKM}
}

// Select evaluates every direction and returns the one with the lowest
// directional risk estimate.
func (s Selector) Select(o Observation) SafeZone {
	offset := s.RadiusKM / KMPerDegree

	best := Directions[0]
	lowest := directionalRisk(o, best.Name)
	for _, d := range Directions[1:] {
		if r := directionalRisk(o, d.Name); r < lowest {
			best, lowest = d, r
		}
	}

	return SafeZone{
		ID:         SafeZoneID(o.City),
		City:       o.City,
		Lon:        o.Lon + best.dLon*offset,
		Lat:        o.Lat + best.dLat*offset,
		Direction:  best.Name,
		DistanceKM: s.RadiusKM,
		RiskScore:  lowest,
	}
}

// SelectAll returns one safe zone per observation, in the same order.
func (s Selector) SelectAll(observations []Observation) []SafeZone {
	zones := make([]SafeZone, 0, len(observations))
	for _, o := range observations {
		zones = append(zones, s.Select(o))
	}
	return zones
}

// directionalRisk estimates the hazard of evacuating toward the named
// heading. High wind and heavy rain lower the estimate everywhere; heat and
// heavy rain additionally favour northern and eastern headings.
func directionalRisk(o Observation, name string) float64 {
	windFactor := 1.0
	if o.WindSpeedKPH > 20 {
		windFactor = 0.8
	}
	precipFactor := min(max(1-o.PrecipitationMM/100, 0.5), 1.0)

	risk := o.BaseRisk() * windFactor * precipFactor

	northOrEast := strings.Contains(name, "North") || strings.Contains(name, "East")
	if o.TemperatureC > 30 && northOrEast {
		risk *= 0.9
	}
	if o.PrecipitationMM > 50 && northOrEast {
		risk *= 0.85
	}
	return risk
}
