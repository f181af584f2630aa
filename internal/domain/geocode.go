package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills in missing coordinates from the city name. If
// geocoder is nil, the observation already has coordinates, or the lookup
// fails, the observation is returned unchanged (graceful degradation); the
// caller drops observations that still have no position.
func EnrichWithGeocoding(ctx context.Context, o Observation, geocoder Geocoder, logger *slog.Logger) Observation {
	if geocoder == nil || o.HasCoordinates() || o.City == "" {
		return o
	}

	result, err := geocoder.ForwardGeocode(ctx, o.City)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"city", o.City,
			"error", err,
		)
		return o
	}
	if result == (GeocodingResult{}) {
		logger.Warn("forward geocoding returned no match", "city", o.City)
		return o
	}

	logger.Info("geocoded city",
		"city", o.City,
		"place", result.FormattedAddress,
		"confidence", result.Confidence,
	)
	o.Lat = result.Lat
	o.Lon = result.Lon
	o.NoPosition = false
	return o
}
