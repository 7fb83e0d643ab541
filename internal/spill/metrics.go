package spill

import (
	"santasleigh/internal/metrics"
	"time"
)

func (store *Store) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	ns := store.Namespace

	var usage int64
	entries, err := store.List()
	if err == nil {
		for _, entry := range entries {
			usage += entry.Size
		}
	}

	collection = []metrics.Metric{
		metrics.NewCounter(ns, "records_written", "Batches written to the spill directory", store.metrics.Written.Swap(0), interval, now),
		metrics.NewCounter(ns, "records_evicted", "Spill records removed to stay under the size ceiling", store.metrics.Evicted.Swap(0), interval, now),
		metrics.NewCounter(ns, "write_failures", "Spill writes that failed", store.metrics.Failures.Swap(0), interval, now),
		metrics.NewGauge(ns, "records", "Spill records on disk", "count", uint64(len(entries)), interval, now),
		metrics.NewGauge(ns, "bytes", "Spill directory usage", "bytes", uint64(usage), interval, now),
	}
	return
}
