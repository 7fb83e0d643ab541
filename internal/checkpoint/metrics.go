package checkpoint

import (
	"santasleigh/internal/metrics"
	"time"
)

func (store *Store) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	collection = []metrics.Metric{
		metrics.NewCounter(store.Namespace, "saves", "Checkpoint writes in the interval",
			store.metrics.Saves.Swap(0), interval, now),
		metrics.NewCounter(store.Namespace, "checkpoint_failures", "Failed checkpoint writes in the interval",
			store.metrics.Failures.Swap(0), interval, now),
	}
	return
}
