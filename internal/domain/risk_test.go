package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overlapping places two observations inside one 0.05° box around (0.02, 0).
func overlapping() []Observation {
	return []Observation{
		{City: "Near", Lat: 0, Lon: 0.01, RiskLevel: RiskLow},
		{City: "Far", Lat: 0, Lon: 0.06, RiskLevel: RiskHigh},
	}
}

func TestRiskSurface_LookupNear_NearestPolicy(t *testing.T) {
	s := NewRiskSurface(overlapping(), MatchNearest)

	o, ok := s.LookupNear(0.02, 0, DefaultMatchTolerance)
	require.True(t, ok)
	assert.Equal(t, "Near", o.City)
}

func TestRiskSurface_LookupNear_LastMatchPolicy(t *testing.T) {
	// Compatibility mode: iteration order decides, not distance.
	s := NewRiskSurface(overlapping(), MatchLast)

	o, ok := s.LookupNear(0.02, 0, DefaultMatchTolerance)
	require.True(t, ok)
	assert.Equal(t, "Far", o.City)
}

func TestRiskSurface_LookupNear_NearestTieKeepsFirst(t *testing.T) {
	s := NewRiskSurface([]Observation{
		{City: "West", Lat: 0, Lon: -0.01},
		{City: "East", Lat: 0, Lon: 0.01},
	}, MatchNearest)

	o, ok := s.LookupNear(0, 0, DefaultMatchTolerance)
	require.True(t, ok)
	assert.Equal(t, "West", o.City)
}

func TestRiskSurface_LookupNear_BoundingBoxNotRadius(t *testing.T) {
	s := NewRiskSurface([]Observation{{City: "Corner", Lat: 0, Lon: 0}}, MatchNearest)

	// (0.049, 0.049) is ~0.069° away but inside the box on both axes.
	_, ok := s.LookupNear(0.049, 0.049, DefaultMatchTolerance)
	assert.True(t, ok)

	_, ok = s.LookupNear(0.051, 0, DefaultMatchTolerance)
	assert.False(t, ok)
}

func TestRiskSurface_LookupNear_Empty(t *testing.T) {
	s := NewRiskSurface(nil, MatchNearest)
	_, ok := s.LookupNear(0, 0, DefaultMatchTolerance)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestRiskSurface_IsolatedFromCaller(t *testing.T) {
	obs := []Observation{{City: "Alpha", Lat: 1, Lon: 1}}
	s := NewRiskSurface(obs, MatchNearest)
	obs[0].City = "Mutated"

	o, ok := s.City("Alpha")
	require.True(t, ok)
	assert.Equal(t, "Alpha", o.City)
	assert.Equal(t, "Alpha", s.Observations()[0].City)
}

func TestRiskSurface_City(t *testing.T) {
	s := NewRiskSurface(overlapping(), MatchNearest)

	o, ok := s.City("Far")
	require.True(t, ok)
	assert.Equal(t, RiskHigh, o.RiskLevel)

	_, ok = s.City("Nowhere")
	assert.False(t, ok)
}

func TestParseMatchPolicy(t *testing.T) {
	p, err := ParseMatchPolicy("last")
	require.NoError(t, err)
	assert.Equal(t, MatchLast, p)

	p, err = ParseMatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MatchNearest, p)
	assert.Equal(t, "nearest", p.String())

	_, err = ParseMatchPolicy("random")
	assert.Error(t, err)
}
