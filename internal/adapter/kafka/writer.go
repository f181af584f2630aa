// Package kafka publishes evacuation routes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-data-evacuation/internal/config"
	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

// Writer produces one message per route to the routes topic.
// It implements pipeline.RouteSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured routes topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRoutesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// PersistRoutes publishes every route in a single WriteMessages call. Routes
// are keyed by city so a compacted topic keeps the latest route per city.
func (w *Writer) PersistRoutes(ctx context.Context, routes []domain.Route) error {
	if len(routes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(routes))
	for i := range routes {
		msg, err := serializeToMessage(routes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish routes: %w", err)
	}
	w.logger.Debug("routes published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a route's GeoJSON feature into a Kafka message.
func serializeToMessage(r domain.Route) (kafkago.Message, error) {
	data, err := json.Marshal(r.Feature())
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize route %q: %w", r.City, err)
	}
	headers := []kafkago.Header{
		{Key: "run_id", Value: []byte(r.RunID)},
		{Key: "route_points", Value: []byte(strconv.Itoa(len(r.Coordinates)))},
	}
	if !r.ComputedAt.IsZero() {
		headers = append(headers, kafkago.Header{Key: "computed_at", Value: []byte(r.ComputedAt.Format(time.RFC3339))})
	}
	return kafkago.Message{
		Key:     []byte(r.City),
		Value:   data,
		Headers: headers,
	}, nil
}
