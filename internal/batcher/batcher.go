// Groups parsed events into batches sealed by count, size or age
package batcher

import (
	"santasleigh/internal/global"
	"santasleigh/internal/parser"
	"time"

	"github.com/google/uuid"
)

func New(cfg Config) (new *Batcher) {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = global.DefaultBatchEvents
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = global.DefaultBatchBytes
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = global.DefaultBatchMaxWait
	}

	new = &Batcher{
		Namespace: []string{global.NSBatcher},
		cfg:       cfg,
		now:       time.Now,
		metrics:   MetricStorage{Failures: make(map[parser.Reason]uint64)},
	}
	return
}

// Accounts one parse result. Returns the sealed batch when a size threshold is reached.
func (batcher *Batcher) Add(result parser.Result, now time.Time) (sealed *Batch) {
	if !batcher.touched {
		batcher.touched = true
		batcher.first = now
	}

	if result.Failure != nil {
		// Skipped lines still move the window end so the checkpoint can pass them
		batcher.extend(result.Failure.Source)
		return
	}
	if result.Event == nil {
		return
	}

	batcher.events = append(batcher.events, *result.Event)
	batcher.bytes += len(result.Event.Raw) + 1
	batcher.extend(result.Event.Source)

	if len(batcher.events) >= batcher.cfg.MaxEvents || batcher.bytes >= batcher.cfg.MaxBytes {
		sealed = batcher.seal(now)
	}
	return
}

// True when the open window has aged past MaxWait
func (batcher *Batcher) Due(now time.Time) (due bool) {
	due = batcher.touched && now.Sub(batcher.first) >= batcher.cfg.MaxWait
	return
}

// When the open window must be sealed; ok is false for an empty window
func (batcher *Batcher) Deadline() (deadline time.Time, ok bool) {
	if !batcher.touched {
		return
	}
	deadline = batcher.first.Add(batcher.cfg.MaxWait)
	ok = true
	return
}

// Seals whatever the window holds. A window of only skipped lines yields a batch
// with no events so the checkpoint can still move past them.
func (batcher *Batcher) Flush(now time.Time) (sealed *Batch) {
	if !batcher.touched {
		return
	}
	sealed = batcher.seal(now)
	return
}

func (batcher *Batcher) extend(pos position) {
	if batcher.end.Less(pos) {
		batcher.end = pos
	}
}

func (batcher *Batcher) seal(now time.Time) (sealed *Batch) {
	batcher.seq++
	sealed = &Batch{
		ID:      uuid.New(),
		Seq:     batcher.seq,
		Events:  batcher.events,
		End:     batcher.end,
		Bytes:   batcher.bytes,
		Created: now,
	}

	batcher.events = nil
	batcher.bytes = 0
	batcher.touched = false
	batcher.first = time.Time{}
	batcher.metrics.BatchesSealed.Add(1)
	return
}
