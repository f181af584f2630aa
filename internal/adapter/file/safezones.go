package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

// Safe-zone feature properties.
const (
	propCity       = "city"
	propSafeZoneID = "safe_zone_id"
	propLatitude   = "latitude"
	propLongitude  = "longitude"
	propDirection  = "direction"
	propDistanceKM = "distance_km"
	propRiskScore  = "risk_score"
)

// SafeZoneReader loads safe zones from a GeoJSON FeatureCollection of points.
type SafeZoneReader struct {
	path string
}

// NewSafeZoneReader creates a reader for the GeoJSON file at path.
func NewSafeZoneReader(path string) *SafeZoneReader {
	return &SafeZoneReader{path: path}
}

// LoadSafeZones returns one zone per point feature that names a city.
// Features of other geometry types are rejected.
func (r *SafeZoneReader) LoadSafeZones(_ context.Context) ([]domain.SafeZone, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInputMissing, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}

	zones := make([]domain.SafeZone, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("decode %s: feature %d is %T, want Point", r.path, i, f.Geometry)
		}
		city := f.Properties.MustString(propCity, "")
		if city == "" {
			return nil, fmt.Errorf("decode %s: feature %d has no %q property", r.path, i, propCity)
		}
		zones = append(zones, domain.SafeZone{
			ID:         f.Properties.MustString(propSafeZoneID, domain.SafeZoneID(city)),
			City:       city,
			Lon:        pt.Lon(),
			Lat:        pt.Lat(),
			Direction:  f.Properties.MustString(propDirection, ""),
			DistanceKM: f.Properties.MustFloat64(propDistanceKM, 0),
			RiskScore:  f.Properties.MustFloat64(propRiskScore, 0),
		})
	}
	return zones, nil
}

// SafeZoneWriter saves the zones a run used so they can be reviewed or fed
// back in as a fixed source.
type SafeZoneWriter struct {
	path string
}

// NewSafeZoneWriter creates a writer for the GeoJSON file at path.
func NewSafeZoneWriter(path string) *SafeZoneWriter {
	return &SafeZoneWriter{path: path}
}

// WriteSafeZones atomically replaces the file with one point per zone.
func (w *SafeZoneWriter) WriteSafeZones(_ context.Context, zones []domain.SafeZone) error {
	fc := newCollection()
	for _, z := range zones {
		f := geojson.NewFeature(z.Point())
		f.Properties[propCity] = z.City
		f.Properties[propSafeZoneID] = z.ID
		f.Properties[propLatitude] = z.Lat
		f.Properties[propLongitude] = z.Lon
		f.Properties[propDirection] = z.Direction
		f.Properties[propDistanceKM] = z.DistanceKM
		f.Properties[propRiskScore] = z.RiskScore
		fc.Append(f)
	}
	return writeCollection(w.path, fc)
}

// newCollection returns an empty collection tagged with the CRS84 reference
// system, the form GIS tools expect for WGS84 (lon, lat) data.
func newCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"crs": map[string]any{
			"type":       "name",
			"properties": map[string]any{"name": domain.CRS84},
		},
	}
	return fc
}

func writeCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeAtomic(path, append(data, '\n'))
}
