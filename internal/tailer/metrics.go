package tailer

import (
	"santasleigh/internal/metrics"
	"time"
)

func (tailer *Tailer) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	ns := tailer.Namespace

	collection = []metrics.Metric{
		metrics.NewCounter(ns, "lines_read", "Complete lines emitted in the interval", tailer.metrics.LinesRead.Swap(0), interval, now),
		metrics.NewCounter(ns, "bytes_read", "Bytes read from the source in the interval", tailer.metrics.BytesRead.Swap(0), interval, now),
		metrics.NewCounter(ns, "rotations", "Source replacements observed", tailer.metrics.Rotations.Swap(0), interval, now),
		metrics.NewCounter(ns, "truncations", "In-place truncations observed", tailer.metrics.Truncations.Swap(0), interval, now),
		metrics.NewCounter(ns, "source_missing", "Times the source path disappeared", tailer.metrics.SourceMissing.Swap(0), interval, now),
		metrics.NewCounter(ns, "oversized_lines", "Lines cut at the maximum length", tailer.metrics.Oversized.Swap(0), interval, now),
	}
	return
}
