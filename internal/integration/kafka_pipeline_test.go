//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/file"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/overpass"
	"github.com/couchcryptid/storm-data-evacuation/internal/config"
	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
	"github.com/couchcryptid/storm-data-evacuation/internal/pipeline"
	"github.com/couchcryptid/storm-data-evacuation/internal/planner"
)

const testRoutesTopic = "test-evacuation-routes"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("evacuation-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// routeMessage holds a deserialized message read from the routes topic.
type routeMessage struct {
	Feature *geojson.Feature
	Key     string
	Headers map[string]string
}

func readRoute(ctx context.Context, t *testing.T, consumer *kafkago.Reader) routeMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from routes topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	f, err := geojson.UnmarshalFeature(msg.Value)
	require.NoError(t, err, "unmarshal route feature")
	return routeMessage{Feature: f, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testRoutesTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaWriter verifies one message per route with key and headers.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRoutesTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaRoutesTopic: testRoutesTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	route := domain.Route{
		City:        "Alpha",
		Coordinates: orb.LineString{{10, 10}, {10, 10.18}},
		RunID:       "run-1",
		ComputedAt:  time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, writer.PersistRoutes(ctx, []domain.Route{route}))

	rm := readRoute(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "Alpha", rm.Key)
	assert.Equal(t, "run-1", rm.Headers["run_id"])
	assert.Equal(t, "2", rm.Headers["route_points"])
	assert.Equal(t, "2026-09-02T00:00:00Z", rm.Headers["computed_at"])
	assert.Equal(t, route.Coordinates, rm.Feature.Geometry)
}

// TestPipelineEndToEnd runs a batch over a CSV of three cities with the
// direct network provider and checks both the file store and the topic.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRoutesTopic)

	dir := t.TempDir()
	obsPath := filepath.Join(dir, "observations.csv")
	require.NoError(t, os.WriteFile(obsPath, []byte(
		"city,latitude,longitude,temperature_c,humidity,wind_speed_kph,precipitation_mm,risk_level\n"+
			"Alpha,10,10,25,60,10,5,Low\n"+
			"Beta,20,20,32,80,45,70,High\n"+
			"Gamma,30,30,18,40,5,0,Medium\n",
	), 0o644))
	routesPath := filepath.Join(dir, "routes.geojson")

	metrics := observability.NewMetricsForTesting()
	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaRoutesTopic: testRoutesTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(pipeline.Deps{
		Observations: file.NewObservationReader(obsPath, discardLogger(), metrics),
		Network:      overpass.Direct{},
		Store:        file.NewRouteStore(routesPath),
		Sinks:        []pipeline.RouteSink{writer},
	}, pipeline.Config{
		Selector:  domain.NewSelector(20),
		Policy:    domain.MatchNearest,
		Tolerance: domain.DefaultMatchTolerance,
		Planner:   planner.Options{Concurrency: 2},
	}, discardLogger(), metrics)

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Routed)

	consumer := newConsumer(t, broker)
	keys := make([]string, 0, 3)
	for range 3 {
		rm := readRoute(ctx, t, consumer)
		keys = append(keys, rm.Key)
		assert.Equal(t, summary.RunID, rm.Headers["run_id"])
	}
	assert.ElementsMatch(t, []string{"Alpha", "Beta", "Gamma"}, keys)

	fc, err := os.ReadFile(routesPath)
	require.NoError(t, err)
	collection, err := geojson.UnmarshalFeatureCollection(fc)
	require.NoError(t, err)
	assert.Len(t, collection.Features, 3)
}
