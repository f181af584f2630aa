package domain

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		in   string
		want RiskLevel
	}{
		{"High", RiskHigh},
		{"high", RiskHigh},
		{" MEDIUM ", RiskMedium},
		{"Low", RiskLow},
		{"", RiskUnknown},
		{"Extreme", RiskUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRiskLevel(tt.in))
		})
	}
	assert.Equal(t, "High", RiskHigh.String())
	assert.Empty(t, RiskUnknown.String())
}

func TestObservation_HasCoordinates(t *testing.T) {
	tests := []struct {
		name string
		o    Observation
		want bool
	}{
		{"origin", Observation{}, true},
		{"on equator", Observation{Lat: 0, Lon: 5}, true},
		{"poles and antimeridian", Observation{Lat: -90, Lon: 180}, true},
		{"blank columns", Observation{NoPosition: true}, false},
		{"nan latitude", Observation{Lat: math.NaN(), Lon: 5}, false},
		{"infinite latitude", Observation{Lat: math.Inf(1), Lon: 5}, false},
		{"infinite longitude", Observation{Lat: 5, Lon: math.Inf(-1)}, false},
		{"latitude out of range", Observation{Lat: 91, Lon: 5}, false},
		{"longitude out of range", Observation{Lat: 5, Lon: -180.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.o.HasCoordinates())
		})
	}
}

func TestObservation_Finite(t *testing.T) {
	assert.True(t, Observation{Lat: 1, Lon: 2, PrecipitationMM: 60, RiskScore: -0.4}.Finite())
	assert.False(t, Observation{PrecipitationMM: math.NaN()}.Finite())
	assert.False(t, Observation{RiskScore: math.Inf(1), HasRiskScore: true}.Finite())
	assert.False(t, Observation{WindSpeedKPH: math.Inf(1)}.Finite())
}

func TestObservation_Point(t *testing.T) {
	o := Observation{Lat: 48.1, Lon: 11.5}
	assert.Equal(t, orb.Point{11.5, 48.1}, o.Point())
}

func TestObservation_BaseRisk(t *testing.T) {
	assert.InDelta(t, 3.0, Observation{RiskLevel: RiskHigh}.BaseRisk(), 1e-12)
	assert.InDelta(t, -0.4, Observation{RiskLevel: RiskHigh, RiskScore: -0.4, HasRiskScore: true}.BaseRisk(), 1e-12)
	assert.Zero(t, Observation{}.BaseRisk())
}

func TestObservation_ConnectorRisk(t *testing.T) {
	assert.Zero(t, Observation{RiskLevel: RiskHigh}.ConnectorRisk())
	assert.InDelta(t, 1.2, Observation{RiskScore: 1.2, HasRiskScore: true}.ConnectorRisk(), 1e-12)
}
