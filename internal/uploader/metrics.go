package uploader

import (
	"santasleigh/internal/metrics"
	"time"
)

func (uploader *Uploader) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	ns := uploader.Namespace
	m := &uploader.metrics

	collection = []metrics.Metric{
		metrics.NewCounter(ns, "batches_acked", "Batches acknowledged by the sink", m.Acked.Swap(0), interval, now),
		metrics.NewCounter(ns, "retries", "Delivery retries after transient failures", m.Retries.Swap(0), interval, now),
		metrics.NewCounter(ns, "rejected", "Batches refused by the sink", m.Rejected.Swap(0), interval, now),
		metrics.NewCounter(ns, "dropped", "Batches discarded by the drop policy", m.Dropped.Swap(0), interval, now),
		metrics.NewCounter(ns, "spilled", "Batches written to the spill directory", m.Spilled.Swap(0), interval, now),
		metrics.NewCounter(ns, "spill_failures", "Spill writes that failed and were retried", m.SpillFailures.Swap(0), interval, now),
		metrics.NewCounter(ns, "replayed", "Spilled batches delivered", m.Replayed.Swap(0), interval, now),
		metrics.NewCounter(ns, "checkpoint_failures", "Checkpoint saves that failed", m.CheckpointFailures.Swap(0), interval, now),
		metrics.NewCounter(ns, "worker_panics", "Delivery workers restarted after a panic", m.WorkerPanics.Swap(0), interval, now),
		metrics.NewGauge(ns, "in_flight", "Batches currently being delivered", "count", uint64(max(m.InFlight.Load(), 0)), interval, now),
		metrics.NewGauge(ns, "awaiting_order", "Acknowledged batches waiting on an earlier batch", "count", uint64(uploader.pending.Waiting()), interval, now),
	}
	return
}
