package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

// Preparer turns loaded observation rows into the set a run plans over: one
// row per city, each with a usable position.
type Preparer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPreparer creates a Preparer. Pass a nil geocoder to disable geocoding
// enrichment.
func NewPreparer(geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Preparer {
	return &Preparer{
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Prepare drops rows holding non-finite numbers and duplicate cities (first
// row wins), geocodes rows without coordinates, and drops rows that still
// have none. Order is preserved.
func (p *Preparer) Prepare(ctx context.Context, rows []domain.Observation) []domain.Observation {
	seen := make(map[string]bool, len(rows))
	out := make([]domain.Observation, 0, len(rows))

	for _, o := range rows {
		if !o.Finite() {
			p.logger.Warn("observation with non-finite value dropped", "city", o.City)
			p.metrics.InputsDropped.WithLabelValues("malformed").Inc()
			continue
		}
		if seen[o.City] {
			p.logger.Warn("duplicate city row dropped", "city", o.City)
			p.metrics.InputsDropped.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[o.City] = true

		o = domain.EnrichWithGeocoding(ctx, o, p.geocoder, p.logger)
		if !o.HasCoordinates() {
			p.logger.Warn("city has no coordinates, skipping",
				"city", o.City,
				"error", domain.ErrInputMissing,
			)
			p.metrics.InputsDropped.WithLabelValues("no_coordinates").Inc()
			continue
		}
		out = append(out, o)
	}
	return out
}
