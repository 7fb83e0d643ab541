// Bounded multi-producer queue with blocking push for backpressure between stages
package queue

import (
	"context"
	"fmt"
	"santasleigh/internal/atomics"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"time"

	"github.com/pbnjay/memory"
)

// Creates a new queue bounded by item count and bytes.
// maxBytes is clamped to a quarter of system memory. stallWarning 0 disables stall logging.
func New[T any](namespace []string, maxItems int, maxBytes int64, stallWarning time.Duration) (new *Queue[T], err error) {
	if maxItems < 1 {
		err = fmt.Errorf("queue capacity must be at least 1, got %d", maxItems)
		return
	}
	if maxBytes < 1 {
		err = fmt.Errorf("queue byte limit must be positive, got %d", maxBytes)
		return
	}

	new = &Queue[T]{
		Namespace:    append(append([]string(nil), namespace...), global.NSQueue),
		items:        make(chan entry[T], maxItems),
		maxBytes:     ClampToMemory(maxBytes),
		stallWarning: stallWarning,
		freed:        make(chan struct{}, 1),
	}
	return
}

// Limits a byte budget to a quarter of total system memory (when known)
func ClampToMemory(requested int64) (allowed int64) {
	allowed = requested

	total := memory.TotalMemory()
	if total == 0 {
		return
	}
	ceiling := int64(total / 4)
	if ceiling > 0 && allowed > ceiling {
		allowed = ceiling
	}
	return
}

// Blocks until the value fits, the queue accepts it, or ctx ends.
// An item larger than the byte limit is accepted once the queue is empty.
func (queue *Queue[T]) PushBlocking(ctx context.Context, value T, size int) (err error) {
	accounted := int64(size)
	start := time.Now()
	nextWarn := start.Add(queue.stallWarning)

	// Reserve byte budget
	for !queue.reserve(accounted) {
		err = queue.waitFreed(ctx, &nextWarn, start)
		if err != nil {
			return
		}
	}

	// Count budget (channel capacity)
	for {
		var timeout <-chan time.Time
		var timer *time.Timer
		if queue.stallWarning > 0 {
			timer = time.NewTimer(time.Until(nextWarn))
			timeout = timer.C
		}

		select {
		case queue.items <- entry[T]{value: value, size: accounted}:
			if timer != nil {
				timer.Stop()
			}
			atomics.StoreMax(&queue.Metrics.PeakDepth, queue.Metrics.Depth.Add(1))
			queue.Metrics.Pushed.Add(1)
			return
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			atomics.SubtractFloor(&queue.Metrics.Bytes, accounted)
			err = ctx.Err()
			return
		case <-timeout:
			queue.stalled(ctx, start)
			nextWarn = time.Now().Add(queue.stallWarning)
		}
	}
}

// Attempts to claim byte budget
func (queue *Queue[T]) reserve(size int64) (ok bool) {
	queue.reserveMu.Lock()
	defer queue.reserveMu.Unlock()

	current := queue.Metrics.Bytes.Load()
	if current > 0 && current+size > queue.maxBytes {
		return
	}
	queue.Metrics.Bytes.Add(size)
	ok = true
	return
}

// Waits for a consumer to free space, logging when blocked past the stall warning
func (queue *Queue[T]) waitFreed(ctx context.Context, nextWarn *time.Time, start time.Time) (err error) {
	var timeout <-chan time.Time
	if queue.stallWarning > 0 {
		timer := time.NewTimer(time.Until(*nextWarn))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-queue.freed:
	case <-timeout:
		queue.stalled(ctx, start)
		*nextWarn = time.Now().Add(queue.stallWarning)
	}
	return
}

func (queue *Queue[T]) stalled(ctx context.Context, start time.Time) {
	queue.Metrics.PushStalls.Add(1)
	logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
		"downstream is not keeping up: push blocked for %s (depth %d, %d bytes)\n",
		time.Since(start).Round(time.Second), queue.Metrics.Depth.Load(), queue.Metrics.Bytes.Load())
}

// Blocks for the next value. Returns false when the queue is closed and empty, or ctx ends.
func (queue *Queue[T]) Pop(ctx context.Context) (value T, ok bool) {
	select {
	case <-ctx.Done():
		return
	case item, open := <-queue.items:
		if !open {
			return
		}
		queue.release(item)
		value = item.value
		ok = true
		return
	}
}

// Non-blocking pop
func (queue *Queue[T]) TryPop() (value T, ok bool) {
	select {
	case item, open := <-queue.items:
		if !open {
			return
		}
		queue.release(item)
		value = item.value
		ok = true
	default:
	}
	return
}

func (queue *Queue[T]) release(item entry[T]) {
	atomics.SubtractFloor(&queue.Metrics.Depth, 1)
	atomics.SubtractFloor(&queue.Metrics.Bytes, item.size)
	queue.Metrics.Popped.Add(1)

	select {
	case queue.freed <- struct{}{}:
	default:
	}
}

// Marks end of input. Consumers drain remaining items then see ok=false.
// Only producers may close, and no push may follow.
func (queue *Queue[T]) Close() {
	queue.closeOnce.Do(func() { close(queue.items) })
}

// Items currently queued
func (queue *Queue[T]) Len() (depth int) {
	depth = len(queue.items)
	return
}
