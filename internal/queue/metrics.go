package queue

import (
	"santasleigh/internal/metrics"
	"time"
)

func (queue *Queue[T]) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()

	collection = []metrics.Metric{
		metrics.NewGauge(queue.Namespace, "depth", "Items waiting in queue", "count",
			uint64(max(queue.Metrics.Depth.Load(), 0)), interval, now),
		metrics.NewGauge(queue.Namespace, "peak_depth", "Highest depth in the interval", "count",
			uint64(max(queue.Metrics.PeakDepth.Swap(queue.Metrics.Depth.Load()), 0)), interval, now),
		metrics.NewGauge(queue.Namespace, "bytes", "Accounted bytes waiting in queue", "bytes",
			uint64(max(queue.Metrics.Bytes.Load(), 0)), interval, now),
		metrics.NewCounter(queue.Namespace, "pushed", "Items accepted in the interval",
			queue.Metrics.Pushed.Swap(0), interval, now),
		metrics.NewCounter(queue.Namespace, "popped", "Items removed in the interval",
			queue.Metrics.Popped.Swap(0), interval, now),
		metrics.NewCounter(queue.Namespace, "push_stalls", "Pushes blocked past the stall warning",
			queue.Metrics.PushStalls.Swap(0), interval, now),
	}
	return
}
