package domain

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CRS84 names WGS84 with (lon, lat) axis order, the reference system of every
// coordinate this service writes.
const CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"

// Route is an evacuation path from a city to its safe zone.
type Route struct {
	City        string
	Coordinates orb.LineString // (lon, lat), city first, safe zone last
	Cost        float64
	RunID       string
	ComputedAt  time.Time
}

// Feature renders the route as a GeoJSON LineString feature keyed by city.
// Only stable fields are included so unchanged inputs encode identically.
func (r Route) Feature() *geojson.Feature {
	f := geojson.NewFeature(r.Coordinates)
	f.Properties["city"] = r.City
	return f
}

// OutcomeState is the terminal state of one city in a planning pass.
type OutcomeState string

const (
	StateRouted      OutcomeState = "routed"
	StateNoSafeZone  OutcomeState = "no_safe_zone"
	StateNoPath      OutcomeState = "no_path"
	StateFetchFailed OutcomeState = "fetch_failed"
)

// Outcome is the per-city result of planning. Route is set only when State is
// StateRouted; Err explains every other state.
type Outcome struct {
	City     string
	State    OutcomeState
	Route    *Route
	Attempts int
	Err      error
}

// Routed reports whether the outcome carries a route.
func (o Outcome) Routed() bool {
	return o.State == StateRouted && o.Route != nil
}

// RoutesFrom collects the routes of routed outcomes, preserving order.
func RoutesFrom(outcomes []Outcome) []Route {
	routes := make([]Route, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Routed() {
			routes = append(routes, *o.Route)
		}
	}
	return routes
}
