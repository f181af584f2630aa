package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Select_HotWetWindyPrefersNorth(t *testing.T) {
	o := Observation{
		City:            "Alpha",
		Lat:             0,
		Lon:             0,
		TemperatureC:    35,
		PrecipitationMM: 60,
		WindSpeedKPH:    25,
		RiskLevel:       RiskHigh,
	}

	z := NewSelector(20).Select(o)

	assert.Equal(t, "SafeZone_Alpha", z.ID)
	assert.Equal(t, "Alpha", z.City)
	assert.Equal(t, "North", z.Direction)
	assert.InDelta(t, 0.0, z.Lon, 1e-12)
	assert.InDelta(t, 20.0/111.0, z.Lat, 1e-9)
	assert.InDelta(t, 0.18, z.Lat, 0.001)
	assert.InDelta(t, 20.0, z.DistanceKM, 1e-12)
	// 3 × 0.8 (wind) × 0.5 (clamped precip) × 0.9 (heat) × 0.85 (rain)
	assert.InDelta(t, 3*0.8*0.5*0.9*0.85, z.RiskScore, 1e-9)
}

func TestSelector_Select_CalmWeatherKeepsFirstDirection(t *testing.T) {
	o := Observation{City: "Calm", Lat: 45, Lon: 7, TemperatureC: 15, RiskLevel: RiskLow}

	z := NewSelector(0).Select(o)

	assert.Equal(t, "North", z.Direction)
	assert.InDelta(t, 7.0, z.Lon, 1e-12)
	assert.InDelta(t, 45+DefaultSafeZoneRadiusKM/KMPerDegree, z.Lat, 1e-9)
	assert.InDelta(t, 1.0, z.RiskScore, 1e-12)
}

func TestSelector_Select_NegativeScoreFavoursUnboostedHeading(t *testing.T) {
	// A negative composite score flips the sense of the heat boost: scaling by
	// 0.9 raises the estimate, so the first heading without the boost wins.
	o := Observation{City: "Cold", Lat: 10, Lon: 10, TemperatureC: 40, RiskScore: -1.5, HasRiskScore: true}

	z := NewSelector(111).Select(o)

	assert.Equal(t, "South", z.Direction)
	assert.InDelta(t, 10.0, z.Lon, 1e-12)
	assert.InDelta(t, 9.0, z.Lat, 1e-9)
	assert.InDelta(t, -1.5, z.RiskScore, 1e-12)
}

func TestSelector_Select_DiagonalOffset(t *testing.T) {
	for _, d := range Directions {
		switch d.Name {
		case "NorthEast", "SouthEast", "SouthWest", "NorthWest":
			assert.InDelta(t, 0.707, math.Abs(d.dLon), 1e-12, d.Name)
			assert.InDelta(t, 0.707, math.Abs(d.dLat), 1e-12, d.Name)
		}
	}
}

func TestSelector_SelectAll_OnePerCityInOrder(t *testing.T) {
	obs := []Observation{
		{City: "A", Lat: 1, Lon: 1, RiskLevel: RiskLow},
		{City: "B", Lat: 2, Lon: 2, RiskLevel: RiskMedium},
		{City: "C", Lat: 3, Lon: 3, RiskLevel: RiskHigh},
	}

	zones := NewSelector(20).SelectAll(obs)

	require.Len(t, zones, 3)
	for i, z := range zones {
		assert.Equal(t, obs[i].City, z.City)
		assert.Equal(t, SafeZoneID(obs[i].City), z.ID)
	}
}

func TestSelector_Select_Deterministic(t *testing.T) {
	o := Observation{City: "Alpha", Lat: 12.5, Lon: -3.25, TemperatureC: 31, PrecipitationMM: 51, WindSpeedKPH: 21, RiskScore: 0.7, HasRiskScore: true}
	s := NewSelector(20)

	first := s.Select(o)
	for range 10 {
		assert.Equal(t, first, s.Select(o))
	}
}

func TestDirections_Order(t *testing.T) {
	names := make([]string, 0, len(Directions))
	for _, d := range Directions {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"North", "NorthEast", "East", "SouthEast", "South", "SouthWest", "West", "NorthWest"}, names)
}
