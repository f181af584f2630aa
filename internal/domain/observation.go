package domain

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// RiskLevel is the categorical hazard class assigned upstream by risk-zone
// clustering.
type RiskLevel int

const (
	RiskUnknown RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
)

// ParseRiskLevel accepts "Low", "Medium" and "High" in any case. Anything else
// is RiskUnknown.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return ""
	}
}

// priority mirrors the resource allocation ranking (High first).
func (l RiskLevel) priority() float64 {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// Observation is one city's weather and hazard snapshot for a run.
type Observation struct {
	City            string
	Lat             float64
	Lon             float64
	TemperatureC    float64
	Humidity        float64
	WindSpeedKPH    float64
	PrecipitationMM float64
	RiskLevel       RiskLevel
	RiskScore       float64
	HasRiskScore    bool
	// NoPosition marks rows whose latitude or longitude column was blank.
	NoPosition bool
}

// Point returns the observation position as (lon, lat).
func (o Observation) Point() orb.Point {
	return orb.Point{o.Lon, o.Lat}
}

// HasCoordinates reports whether the observation carries a usable position:
// both columns were present and hold a finite WGS84 latitude and longitude.
// (0, 0) is a valid position.
func (o Observation) HasCoordinates() bool {
	return !o.NoPosition && ValidPosition(o.Lat, o.Lon)
}

// ValidPosition reports whether lat and lon are finite and inside the WGS84
// ranges.
func ValidPosition(lat, lon float64) bool {
	if !finite(lat) || !finite(lon) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 180
}

// Finite reports whether every numeric field is a finite number. Rows that
// fail it would poison the risk surface and the encoded routes.
func (o Observation) Finite() bool {
	for _, v := range []float64{o.Lat, o.Lon, o.TemperatureC, o.Humidity, o.WindSpeedKPH, o.PrecipitationMM, o.RiskScore} {
		if !finite(v) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BaseRisk is the scalar the safe-zone selector starts from: the composite
// risk score when present, otherwise the risk level priority.
func (o Observation) BaseRisk() float64 {
	if o.HasRiskScore {
		return o.RiskScore
	}
	return o.RiskLevel.priority()
}

// ConnectorRisk is the risk score used to penalize connector edges. It is zero
// when only a categorical level is known.
func (o Observation) ConnectorRisk() float64 {
	if o.HasRiskScore {
		return o.RiskScore
	}
	return 0
}
