package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

// overrideFile is the YAML layout of pinned safe zones:
//
//	safe_zones:
//	  - city: Houston
//	    latitude: 29.7858
//	    longitude: -95.8245
type overrideFile struct {
	SafeZones []override `yaml:"safe_zones"`
}

type override struct {
	City      string   `yaml:"city"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
}

// OverrideReader loads hand-picked safe zones that replace the selector's
// choice for their city.
type OverrideReader struct {
	path string
}

// NewOverrideReader creates a reader for the YAML file at path.
func NewOverrideReader(path string) *OverrideReader {
	return &OverrideReader{path: path}
}

// LoadSafeZones parses the file. Every entry needs a city and both
// coordinates.
func (r *OverrideReader) LoadSafeZones(_ context.Context) ([]domain.SafeZone, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInputMissing, err)
	}

	var doc overrideFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}

	zones := make([]domain.SafeZone, 0, len(doc.SafeZones))
	for i, o := range doc.SafeZones {
		if o.City == "" || o.Latitude == nil || o.Longitude == nil {
			return nil, fmt.Errorf("decode %s: entry %d needs city, latitude and longitude", r.path, i)
		}
		z := domain.SafeZone{
			ID:        domain.SafeZoneID(o.City),
			City:      o.City,
			Lat:       *o.Latitude,
			Lon:       *o.Longitude,
			Direction: domain.OverrideDirection,
		}
		if !domain.ValidPosition(z.Lat, z.Lon) {
			return nil, fmt.Errorf("decode %s: entry %d (%s) has an invalid position", r.path, i, o.City)
		}
		zones = append(zones, z)
	}
	return zones, nil
}
