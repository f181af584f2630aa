package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evac_router"

// Metrics holds the Prometheus counters, histograms, and gauges for an
// evacuation planning run.
type Metrics struct {
	CitiesProcessed *prometheus.CounterVec // labels: state={routed,no_safe_zone,no_path,fetch_failed}
	InputsDropped   *prometheus.CounterVec // labels: reason={duplicate,no_coordinates,malformed}
	PlannerRunning  prometheus.Gauge

	// Network provider metrics.
	FetchAttempts *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram
	NetworkCache  *prometheus.CounterVec // labels: result={hit,miss}
	GraphNodes    prometheus.Histogram

	// Batch metrics.
	RoutesPersisted   *prometheus.CounterVec // labels: sink={file,kafka,postgres}
	BatchDuration     prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// Gatherer returns the registry the metrics are registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		CitiesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_processed_total",
			Help:      "Cities planned, by terminal state.",
		}, []string{"state"}),
		InputsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_dropped_total",
			Help:      "Observation rows dropped while loading, by reason.",
		}, []string{"reason"}),
		PlannerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "planner_running",
			Help:      "1 while a planning pass is active, 0 otherwise.",
		}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_fetch_attempts_total",
			Help:      "Road network fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "network_fetch_duration_seconds",
			Help:      "Duration of a single road network fetch attempt.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NetworkCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_cache_total",
			Help:      "Road network payload cache lookups by result.",
		}, []string{"result"}),
		GraphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in each per-city routing graph.",
			Buckets:   prometheus.ExponentialBuckets(2, 4, 8),
		}),
		RoutesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_persisted_total",
			Help:      "Routes written, by sink.",
		}, []string{"sink"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete load-plan-persist run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccessfulRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last run that persisted at least one route.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Forward geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CitiesProcessed,
		m.InputsDropped,
		m.PlannerRunning,
		m.FetchAttempts,
		m.FetchDuration,
		m.NetworkCache,
		m.GraphNodes,
		m.RoutesPersisted,
		m.BatchDuration,
		m.LastSuccessfulRun,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
