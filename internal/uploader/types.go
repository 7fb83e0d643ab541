package uploader

import (
	"context"
	"santasleigh/internal/batcher"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/framing"
	"santasleigh/internal/spill"
	"sync"
	"sync/atomic"
	"time"
)

// Remote endpoint. Deliver returns nil only once the endpoint has accepted the whole payload.
type Sink interface {
	Deliver(ctx context.Context, payload *framing.Payload) (err error)
	Name() string
	Close() error
}

type Input interface {
	Pop(ctx context.Context) (batch *batcher.Batch, ok bool)
}

// Durable position writer, normally the checkpoint store
type Committer interface {
	Save(pos checkpoint.Position) (err error)
}

type State string

const (
	StatePending   State = "pending"
	StateBackoff   State = "backoff"
	StateAcked     State = "acked"
	StateRejected  State = "rejected"
	StateExhausted State = "exhausted"
)

// Retry bookkeeping for one batch, owned by the worker delivering it
type DeliveryAttempt struct {
	Batch     *batcher.Batch
	Payload   *framing.Payload
	Attempt   int
	FirstTry  time.Time
	NextRetry time.Time
	LastErr   error
	State     State
	class     class
}

type FailurePolicy string

const (
	PolicyDrop  FailurePolicy = "drop"
	PolicySpill FailurePolicy = "spill"
)

type Config struct {
	Concurrency    int
	MaxAttempts    int
	MaxElapsed     time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Policy         FailurePolicy
	Encoding       framing.Encoding
	ReplayInterval time.Duration // idle time before spilled batches are retried
}

type Uploader struct {
	Namespace []string
	cfg       Config
	sink      Sink
	in        Input
	committer Committer
	spill     *spill.Store // nil with the drop policy
	pending   *pendingSet

	now    func() time.Time
	jitter func(ceiling time.Duration) time.Duration
	sleep  func(ctx context.Context, delay time.Duration) error

	quarantineMu sync.Mutex
	quarantined  map[string]struct{} // spill records never to replay this run

	metrics MetricStorage
}

type MetricStorage struct {
	Acked              atomic.Uint64
	Retries            atomic.Uint64
	Rejected           atomic.Uint64
	Dropped            atomic.Uint64
	Spilled            atomic.Uint64
	SpillFailures      atomic.Uint64
	Replayed           atomic.Uint64
	CheckpointFailures atomic.Uint64
	WorkerPanics       atomic.Uint64
	InFlight           atomic.Int64
}

// Records replayed per idle period
const replayBurst int = 16
