// Command evacuate runs one evacuation planning batch: it reads per-city
// weather observations, picks a safe zone for every city, routes each city to
// its zone over the local road network and writes the routes as GeoJSON.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/file"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-data-evacuation/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/netcache"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/overpass"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/postgres"
	"github.com/couchcryptid/storm-data-evacuation/internal/config"
	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
	"github.com/couchcryptid/storm-data-evacuation/internal/pipeline"
	"github.com/couchcryptid/storm-data-evacuation/internal/planner"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := domain.ParseMatchPolicy(cfg.MatchPolicy)
	if err != nil {
		logger.Error("invalid match policy", "error", err)
		return 1
	}

	// Everything opened below is closed on the way out.
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	network, err := newNetworkProvider(ctx, cfg, metrics, logger, &closers)
	if err != nil {
		logger.Error("failed to set up road network provider", "error", err)
		return 1
	}

	sinks, err := newRouteSinks(ctx, cfg, logger, &closers)
	if err != nil {
		logger.Error("failed to set up route sinks", "error", err)
		return 1
	}

	deps := pipeline.Deps{
		Observations: file.NewObservationReader(cfg.ObservationsPath, logger, metrics),
		Network:      network,
		Geocoder:     geocoder,
		Store:        file.NewRouteStore(cfg.RoutesOutputPath),
		Sinks:        sinks,
	}
	if cfg.SafeZonesPath != "" {
		deps.SafeZones = file.NewSafeZoneReader(cfg.SafeZonesPath)
	}
	if cfg.SafeZoneOverridesPath != "" {
		deps.Overrides = file.NewOverrideReader(cfg.SafeZoneOverridesPath)
	}
	if cfg.SafeZonesOutputPath != "" {
		deps.SafeZoneSink = file.NewSafeZoneWriter(cfg.SafeZonesOutputPath)
	}

	clock := clockwork.NewRealClock()
	p := pipeline.New(deps, pipeline.Config{
		Selector:  domain.NewSelector(cfg.SafeZoneRadiusKM),
		Policy:    policy,
		Tolerance: cfg.MatchTolerance,
		Planner: planner.Options{
			HalfExtent:  cfg.BBoxHalfExtent,
			Concurrency: cfg.PlannerConcurrency,
			Retry: planner.RetryPolicy{
				MaxAttempts: cfg.FetchMaxAttempts,
				Backoff:     cfg.FetchBackoff,
				Clock:       clock,
			},
			Clock: clock,
		},
	}, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, metrics.Gatherer(), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	summary, runErr := p.Run(ctx)
	code := exitCode(runErr)
	switch {
	case runErr == nil:
	case errors.Is(runErr, domain.ErrNoRoutes):
		logger.Error("no evacuation routes produced", "run_id", summary.RunID, "cities", summary.Cities)
	default:
		logger.Error("evacuation run failed", "run_id", summary.RunID, "error", runErr)
	}

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, summary.RunID); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	if srv != nil {
		// Keep /routes and /metrics available until the process is told to stop.
		logger.Info("run finished, serving until shutdown", "addr", cfg.HTTPAddr)
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete", "exit_code", code)
	return code
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func newNetworkProvider(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, closers *[]io.Closer) (planner.NetworkProvider, error) {
	if cfg.NetworkSource == config.NetworkSourceDirect {
		logger.Info("road network disabled, connecting cities directly")
		return overpass.Direct{}, nil
	}

	var cache overpass.PayloadCache
	if cfg.RedisURL != "" {
		rc, err := netcache.NewRedis(cfg.RedisURL, cfg.NetworkCacheTTL)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, rc)
		if err := rc.Ping(ctx); err != nil {
			return nil, err
		}
		cache = rc
	} else {
		cache = netcache.NewMemory(cfg.NetworkCacheSize, cfg.NetworkCacheTTL, nil)
	}

	logger.Info("overpass road network enabled",
		"url", cfg.OverpassURL,
		"rate_limit", cfg.OverpassRateLimit,
		"cache", cache.Name(),
	)
	return overpass.NewClient(cfg.OverpassURL, cfg.OverpassTimeout, cfg.OverpassRateLimit, cache, metrics, logger), nil
}

func newRouteSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *[]io.Closer) ([]pipeline.RouteSink, error) {
	var sinks []pipeline.RouteSink
	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg, logger)
		*closers = append(*closers, w)
		sinks = append(sinks, w)
		logger.Info("kafka route sink enabled", "topic", cfg.KafkaRoutesTopic)
	}
	if cfg.PostgresDSN != "" {
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, s)
		sinks = append(sinks, s)
		logger.Info("postgres route sink enabled")
	}
	return sinks, nil
}
