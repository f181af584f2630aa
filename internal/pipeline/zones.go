package pipeline

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

// resolveSafeZones returns one safe zone per planned city. Zones come from the
// configured source when there is one, otherwise from the selector; overrides
// replace either. Zones for cities that are not being planned are ignored.
func (p *Pipeline) resolveSafeZones(ctx context.Context, observations []domain.Observation) (map[string]domain.SafeZone, []domain.SafeZone, error) {
	var zones []domain.SafeZone
	if p.deps.SafeZones != nil {
		loaded, err := p.deps.SafeZones.LoadSafeZones(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load safe zones: %w", err)
		}
		zones = loaded
	} else {
		zones = p.cfg.Selector.SelectAll(observations)
	}

	cities := make(map[string]domain.Observation, len(observations))
	for _, o := range observations {
		cities[o.City] = o
	}

	byCity := make(map[string]domain.SafeZone, len(zones))
	for _, z := range zones {
		if _, dup := byCity[z.City]; dup {
			p.logger.Warn("duplicate safe zone ignored", "city", z.City, "safe_zone_id", z.ID)
			continue
		}
		byCity[z.City] = z
	}

	if p.deps.Overrides != nil {
		overrides, err := p.deps.Overrides.LoadSafeZones(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load safe zone overrides: %w", err)
		}
		for _, z := range overrides {
			if o, ok := cities[z.City]; ok && z.DistanceKM == 0 {
				z.DistanceKM = geo.Distance(o.Point(), z.Point()) / 1000
			}
			p.logger.Info("safe zone overridden", "city", z.City, "lat", z.Lat, "lon", z.Lon)
			byCity[z.City] = z
		}
	}

	ordered := make([]domain.SafeZone, 0, len(observations))
	for _, o := range observations {
		if z, ok := byCity[o.City]; ok {
			ordered = append(ordered, z)
		}
	}
	return byCity, ordered, nil
}
