package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Network sources selectable with NETWORK_SOURCE.
const (
	NetworkSourceOverpass = "overpass"
	NetworkSourceDirect   = "direct"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Inputs and outputs.
	ObservationsPath      string
	SafeZonesPath         string
	SafeZonesOutputPath   string
	SafeZoneOverridesPath string
	RoutesOutputPath      string

	// Planning parameters.
	SafeZoneRadiusKM   float64
	MatchTolerance     float64
	MatchPolicy        string
	BBoxHalfExtent     float64
	FetchMaxAttempts   int
	FetchBackoff       time.Duration
	PlannerConcurrency int

	// Road network provider.
	NetworkSource     string
	OverpassURL       string
	OverpassTimeout   time.Duration
	OverpassRateLimit float64
	NetworkCacheSize  int
	NetworkCacheTTL   time.Duration
	RedisURL          string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Optional route sinks.
	KafkaBrokers     []string
	KafkaRoutesTopic string
	PostgresDSN      string
	PushgatewayURL   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ObservationsPath:      sharedcfg.EnvOrDefault("OBSERVATIONS_PATH", "data/observations.csv"),
		SafeZonesPath:         os.Getenv("SAFE_ZONES_PATH"),
		SafeZonesOutputPath:   os.Getenv("SAFE_ZONES_OUTPUT_PATH"),
		SafeZoneOverridesPath: os.Getenv("SAFE_ZONE_OVERRIDES_PATH"),
		RoutesOutputPath:      sharedcfg.EnvOrDefault("ROUTES_OUTPUT_PATH", "data/evacuation_routes.geojson"),
		MatchPolicy:           sharedcfg.EnvOrDefault("MATCH_POLICY", "nearest"),

		NetworkSource: sharedcfg.EnvOrDefault("NETWORK_SOURCE", NetworkSourceOverpass),
		OverpassURL:   sharedcfg.EnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		RedisURL:      os.Getenv("REDIS_URL"),

		KafkaRoutesTopic: sharedcfg.EnvOrDefault("KAFKA_ROUTES_TOPIC", "evacuation-routes"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	floats := []struct {
		env  string
		def  float64
		dest *float64
	}{
		{"SAFE_ZONE_RADIUS_KM", 20, &cfg.SafeZoneRadiusKM},
		{"MATCH_TOLERANCE_DEG", 0.05, &cfg.MatchTolerance},
		{"BBOX_HALF_EXTENT_DEG", 0.05, &cfg.BBoxHalfExtent},
		{"OVERPASS_RATE_LIMIT", 1, &cfg.OverpassRateLimit},
	}
	for _, f := range floats {
		if *f.dest, err = positiveFloat(f.env, f.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		env  string
		def  int
		dest *int
	}{
		{"FETCH_MAX_ATTEMPTS", 3, &cfg.FetchMaxAttempts},
		{"PLANNER_CONCURRENCY", 4, &cfg.PlannerConcurrency},
		{"NETWORK_CACHE_SIZE", 256, &cfg.NetworkCacheSize},
		{"MAPBOX_CACHE_SIZE", 1000, &cfg.MapboxCacheSize},
	}
	for _, i := range ints {
		if *i.dest, err = positiveInt(i.env, i.def); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		env  string
		def  string
		dest *time.Duration
	}{
		{"FETCH_BACKOFF", "1s", &cfg.FetchBackoff},
		{"OVERPASS_TIMEOUT", "60s", &cfg.OverpassTimeout},
		{"NETWORK_CACHE_TTL", "24h", &cfg.NetworkCacheTTL},
		{"MAPBOX_TIMEOUT", "5s", &cfg.MapboxTimeout},
	}
	for _, d := range durations {
		if *d.dest, err = positiveDuration(d.env, d.def); err != nil {
			return nil, err
		}
	}

	cfg.MapboxToken = os.Getenv("MAPBOX_TOKEN")
	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}

	switch cfg.MatchPolicy {
	case "nearest", "last":
	default:
		return nil, fmt.Errorf("invalid MATCH_POLICY %q: want nearest or last", cfg.MatchPolicy)
	}
	switch cfg.NetworkSource {
	case NetworkSourceOverpass, NetworkSourceDirect:
	default:
		return nil, fmt.Errorf("invalid NETWORK_SOURCE %q: want overpass or direct", cfg.NetworkSource)
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func positiveFloat(env string, def float64) (float64, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return v, nil
}

func positiveInt(env string, def int) (int, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return v, nil
}

func positiveDuration(env, def string) (time.Duration, error) {
	v, err := time.ParseDuration(sharedcfg.EnvOrDefault(env, def))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return v, nil
}
