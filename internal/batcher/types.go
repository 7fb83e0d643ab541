package batcher

import (
	"context"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/parser"
	"santasleigh/internal/tailer"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sealed group of events delivered as one unit
type Batch struct {
	ID      uuid.UUID
	Seq     uint64 // increases by one per sealed batch within a process
	Events  []parser.Event
	End     checkpoint.Position // highest position covered, malformed lines included
	Bytes   int                 // framed NDJSON size before compression
	Created time.Time
}

type Config struct {
	MaxEvents int
	MaxBytes  int
	MaxWait   time.Duration
}

type Input interface {
	Pop(ctx context.Context) (record tailer.RawRecord, ok bool)
}

type Output interface {
	PushBlocking(ctx context.Context, batch *Batch, size int) (err error)
	Close()
}

type Batcher struct {
	Namespace []string
	cfg       Config
	now       func() time.Time

	seq     uint64
	events  []parser.Event
	bytes   int
	end     checkpoint.Position
	touched bool      // window holds events or skipped lines
	first   time.Time // when the window received its first record

	metrics MetricStorage
}

type MetricStorage struct {
	EventsParsed  atomic.Uint64
	BatchesSealed atomic.Uint64
	failuresMu    sync.Mutex
	Failures      map[parser.Reason]uint64
}

// Shutdown flush gets this long when the worker context is already cancelled
const flushTimeout time.Duration = 1 * time.Second
