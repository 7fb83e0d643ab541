package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

type entry[T any] struct {
	value T
	size  int64
}

// Bounded FIFO between two pipeline stages.
// Capacity is limited by item count and by total accounted bytes.
type Queue[T any] struct {
	Namespace    []string
	items        chan entry[T]
	maxBytes     int64
	stallWarning time.Duration
	reserveMu    sync.Mutex    // serializes byte reservations
	freed        chan struct{} // poked on every pop
	closeOnce    sync.Once
	Metrics      MetricStorage
}

type MetricStorage struct {
	Depth      atomic.Int64  // items currently queued
	PeakDepth  atomic.Int64  // highest depth seen in the interval
	Bytes      atomic.Int64  // accounted bytes currently queued
	Pushed     atomic.Uint64 // items accepted in the interval
	Popped     atomic.Uint64 // items removed in the interval
	PushStalls atomic.Uint64 // pushes blocked longer than the stall warning
}
