// Command validate checks a route GeoJSON file against the observations and
// safe zones it was planned from. It verifies the collection structure, the
// route endpoints, and that every routed city appears exactly once.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -observations data/observations.csv \
//	  -safe-zones data/safe_zones.geojson \
//	  -routes data/evacuation_routes.geojson
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/file"
	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

// endpointTolerance is how far (degrees) a route end may sit from the city or
// safe zone it claims to connect.
const endpointTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	observations := flag.String("observations", "", "path to the observation CSV")
	safeZones := flag.String("safe-zones", "", "path to the safe-zone GeoJSON (optional: endpoints are then only checked at the city end)")
	routes := flag.String("routes", "", "path to the route GeoJSON to validate")
	flag.Parse()

	if *observations == "" || *routes == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*observations, *safeZones, *routes); code != 0 {
		os.Exit(code)
	}
}

func run(observationsPath, safeZonesPath, routesPath string) int {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Println("=== Evacuation Route Validation ===")
	fmt.Println()

	obs, err := file.NewObservationReader(observationsPath, logger, observability.NewMetricsForTesting()).LoadObservations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load observations: %v\n", err)
		return 1
	}

	var zones []domain.SafeZone
	if safeZonesPath != "" {
		zones, err = file.NewSafeZoneReader(safeZonesPath).LoadSafeZones(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load safe zones: %v\n", err)
			return 1
		}
	}

	raw, err := os.ReadFile(routesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read routes: %v\n", err)
		return 1
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode routes: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(fc),
		validateEndpoints(fc, obs, zones),
		validateCoverage(fc, obs),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d observations, %d safe zones, %d routes\n", len(obs), len(zones), len(fc.Features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// Validates the collection CRS and that every feature is a usable LineString.

func validateStructure(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 1: Structure (GeoJSON)"}

	checkCRS(p, fc)
	for i, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			p.errorf("feature %d: geometry is %s, want LineString", i, f.Geometry.GeoJSONType())
			continue
		}
		if len(ls) < 2 {
			p.errorf("feature %d: %d points, want at least 2", i, len(ls))
		}
		if f.Properties.MustString("city", "") == "" {
			p.errorf("feature %d: missing city property", i)
		}
		for j, pt := range ls {
			if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lat() < -90 || pt.Lat() > 90 {
				p.errorf("feature %d point %d: %v outside WGS84 range", i, j, pt)
			}
		}
	}
	return p
}

func checkCRS(p *phase, fc *geojson.FeatureCollection) {
	crs, ok := fc.ExtraMembers["crs"]
	if !ok {
		p.errorf("collection: missing crs member")
		return
	}
	// Round-trip through JSON: the decoded member is a generic map.
	data, err := json.Marshal(crs)
	if err != nil {
		p.errorf("collection: crs member: %v", err)
		return
	}
	var named struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &named); err != nil || named.Properties.Name != domain.CRS84 {
		p.errorf("collection: crs is %s, want %s", data, domain.CRS84)
	}
}

// ── Phase 2: Endpoints ──
// Validates that each route starts at its city and ends at its safe zone.

func validateEndpoints(fc *geojson.FeatureCollection, obs []domain.Observation, zones []domain.SafeZone) *phase {
	p := &phase{name: "Phase 2: Endpoints (city → safe zone)"}

	cities := make(map[string]domain.Observation, len(obs))
	for _, o := range obs {
		if _, dup := cities[o.City]; !dup {
			cities[o.City] = o
		}
	}
	zoneByCity := make(map[string]domain.SafeZone, len(zones))
	for _, z := range zones {
		if _, dup := zoneByCity[z.City]; !dup {
			zoneByCity[z.City] = z
		}
	}

	for i, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok || len(ls) < 2 {
			continue
		}
		city := f.Properties.MustString("city", "")
		if o, ok := cities[city]; ok && o.HasCoordinates() && !near(ls[0], o.Point()) {
			p.errorf("feature %d (%s): starts at %v, city is at %v", i, city, ls[0], o.Point())
		}
		if z, ok := zoneByCity[city]; ok && !near(ls[len(ls)-1], z.Point()) {
			p.errorf("feature %d (%s): ends at %v, safe zone is at %v", i, city, ls[len(ls)-1], z.Point())
		}
	}
	return p
}

func near(a, b orb.Point) bool {
	dx, dy := a.Lon()-b.Lon(), a.Lat()-b.Lat()
	return dx*dx+dy*dy <= endpointTolerance*endpointTolerance
}

// ── Phase 3: Coverage ──
// Validates that routes name known cities, once each, in observation order.

func validateCoverage(fc *geojson.FeatureCollection, obs []domain.Observation) *phase {
	p := &phase{name: "Phase 3: Coverage (cities)"}

	order := make(map[string]int, len(obs))
	for i, o := range obs {
		if _, dup := order[o.City]; !dup {
			order[o.City] = i
		}
	}

	seen := make(map[string]bool, len(fc.Features))
	last := -1
	for i, f := range fc.Features {
		city := f.Properties.MustString("city", "")
		idx, known := order[city]
		switch {
		case city == "":
			continue
		case !known:
			p.errorf("feature %d: city %q not in observations", i, city)
		case seen[city]:
			p.errorf("feature %d: city %q routed more than once", i, city)
		case idx < last:
			p.errorf("feature %d: city %q out of observation order", i, city)
		}
		seen[city] = true
		if known && idx > last {
			last = idx
		}
	}

	skipped := 0
	for city := range order {
		if !seen[city] {
			skipped++
		}
	}
	if skipped > 0 {
		fmt.Printf("  Note: %d observed cities have no route (skipped during planning)\n", skipped)
	}
	return p
}
