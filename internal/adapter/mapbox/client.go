// Package mapbox resolves city names to coordinates with the Mapbox
// Geocoding API, for observation rows that arrive without a position.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

// DefaultBaseURL is the forward geocoding endpoint for place lookups.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// placeTypes restricts matches to settlements; a city name should never
// resolve to a street or a point of interest.
const placeTypes = "place,locality"

// Client implements domain.Geocoder.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    DefaultBaseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode returns the best settlement match for name. No match is a
// zero result, not an error.
func (c *Client) ForwardGeocode(ctx context.Context, name string) (domain.GeocodingResult, error) {
	start := time.Now()
	result, err := c.lookup(ctx, name)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		c.logger.Debug("mapbox lookup failed", "city", name, "error", err)
	case result.FormattedAddress == "":
		outcome = "empty"
	}
	c.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	return result, err
}

func (c *Client) lookup(ctx context.Context, name string) (domain.GeocodingResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, name+".json")
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("build mapbox url: %w", err)
	}
	query := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {placeTypes},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("mapbox request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var places placeCollection
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode mapbox response: %w", err)
	}
	return places.best(), nil
}

// placeCollection is the subset of the Mapbox response this client reads.
type placeCollection struct {
	Features []struct {
		Center    []float64 `json:"center"` // [lon, lat]
		PlaceName string    `json:"place_name"`
		Text      string    `json:"text"`
		Relevance float64   `json:"relevance"`
	} `json:"features"`
}

func (p placeCollection) best() domain.GeocodingResult {
	if len(p.Features) == 0 || len(p.Features[0].Center) != 2 {
		return domain.GeocodingResult{}
	}
	f := p.Features[0]
	return domain.GeocodingResult{
		Lat:              f.Center[1],
		Lon:              f.Center[0],
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
}
