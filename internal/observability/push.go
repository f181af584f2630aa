package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name batch runs report under.
const PushJob = "evac_router"

// Push sends the current metric values to a Pushgateway. Batch runs exit
// before a scraper would see them, so the final state is pushed instead.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	err := push.New(url, PushJob).
		Gatherer(m.gatherer).
		Grouping("instance", "evacuate").
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
