// Package overpass fetches drivable road networks from an OpenStreetMap
// Overpass API endpoint and turns them into routing graphs.
package overpass

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/storm-data-evacuation/internal/graph"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

// DefaultURL is the public Overpass interpreter endpoint.
const DefaultURL = "https://overpass-api.de/api/interpreter"

// maxPayload caps a single Overpass response.
const maxPayload = 64 << 20

// drivable lists the highway classes a car can evacuate along.
var drivable = []string{
	"motorway", "motorway_link", "trunk", "trunk_link",
	"primary", "primary_link", "secondary", "secondary_link",
	"tertiary", "tertiary_link", "unclassified", "residential",
	"living_street", "service",
}

// PayloadCache stores raw Overpass responses keyed by bounding box.
type PayloadCache interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// Client implements planner.NetworkProvider against an Overpass endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      PayloadCache
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Overpass client issuing at most perSecond requests
// per second. A nil cache disables payload caching.
func NewClient(endpoint string, timeout time.Duration, perSecond float64, cache PayloadCache, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		url:        endpoint,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchNetwork returns the drivable road graph inside the square box of
// half-side halfExtent degrees around center. A box with no roads is an error.
func (c *Client) FetchNetwork(ctx context.Context, center orb.Point, halfExtent float64) (*graph.Graph, error) {
	bound := orb.Bound{
		Min: orb.Point{center.Lon() - halfExtent, center.Lat() - halfExtent},
		Max: orb.Point{center.Lon() + halfExtent, center.Lat() + halfExtent},
	}
	key := cacheKey(bound)

	if payload, ok := c.cached(ctx, key); ok {
		g, err := BuildGraph(payload)
		if err == nil {
			return g, nil
		}
		c.logger.Warn("discarding cached network payload", "key", key, "error", err)
	}

	payload, err := c.query(ctx, bound)
	if err != nil {
		return nil, err
	}
	g, err := BuildGraph(payload)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, payload); err != nil {
			c.logger.Warn("network cache write failed", "cache", c.cache.Name(), "error", err)
		}
	}
	return g, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	payload, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("network cache read failed", "cache", c.cache.Name(), "error", err)
		ok = false
	}
	if ok {
		c.metrics.NetworkCache.WithLabelValues("hit").Inc()
		return payload, true
	}
	c.metrics.NetworkCache.WithLabelValues("miss").Inc()
	return nil, false
}

func (c *Client) query(ctx context.Context, bound orb.Bound) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("overpass rate limit: %w", err)
	}

	form := url.Values{"data": {Query(bound, c.httpClient.Timeout)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, body)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("read overpass response: %w", err)
	}
	return payload, nil
}

// Query renders the Overpass QL request for drivable ways inside bound.
func Query(bound orb.Bound, timeout time.Duration) string {
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 60
	}
	return fmt.Sprintf(
		"[out:xml][timeout:%d];\n(way[\"highway\"~\"^(%s)$\"](%s););\n(._;>;);\nout body;",
		secs, strings.Join(drivable, "|"), bbox(bound),
	)
}

// bbox formats bound in Overpass order: south,west,north,east.
func bbox(b orb.Bound) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
}

func cacheKey(b orb.Bound) string {
	return "bbox:" + bbox(b)
}
