package batcher

import (
	"santasleigh/internal/metrics"
	"sort"
	"time"
)

func (batcher *Batcher) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	ns := batcher.Namespace

	batcher.metrics.failuresMu.Lock()
	var total uint64
	reasons := make([]string, 0, len(batcher.metrics.Failures))
	perReason := make(map[string]uint64, len(batcher.metrics.Failures))
	for reason, count := range batcher.metrics.Failures {
		total += count
		reasons = append(reasons, string(reason))
		perReason[string(reason)] = count
		delete(batcher.metrics.Failures, reason)
	}
	batcher.metrics.failuresMu.Unlock()
	sort.Strings(reasons)

	collection = []metrics.Metric{
		metrics.NewCounter(ns, "events_parsed", "Lines decoded into events", batcher.metrics.EventsParsed.Swap(0), interval, now),
		metrics.NewCounter(ns, "parse_failures", "Malformed lines skipped", total, interval, now),
		metrics.NewCounter(ns, "batches_sealed", "Batches handed to the uploader", batcher.metrics.BatchesSealed.Swap(0), interval, now),
	}
	for _, reason := range reasons {
		collection = append(collection, metrics.NewCounter(ns, "parse_failures_"+reason,
			"Malformed lines skipped for reason "+reason, perReason[reason], interval, now))
	}
	return
}
