package tailer

import (
	"context"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/source"
	"sync"
	"sync/atomic"
	"time"
)

// One complete line and the position immediately after it (newline included)
type RawRecord struct {
	Line      []byte
	End       checkpoint.Position
	Oversized bool // line exceeded the maximum length; Line holds the head only
}

// Destination for records, normally the raw queue
type Outbox interface {
	PushBlocking(ctx context.Context, record RawRecord, size int) (err error)
}

type State int

const (
	Seeking State = iota
	Streaming
	RotationDetected
)

type rotationKind int

const (
	noRotation rotationKind = iota
	replaced
	truncated
)

type Config struct {
	StartAtEnd   bool          // with no checkpoint, skip existing content
	PollInterval time.Duration // upper bound on idle wait
	MaxLineBytes int
	ChunkSize    int
}

type Tailer struct {
	Namespace []string
	cfg       Config
	opener    source.Opener
	notifier  source.Notifier // optional
	out       Outbox
	resume    *checkpoint.Position

	state    State
	rotation rotationKind
	handle   source.Handle
	buf      []byte

	mu         sync.Mutex          // guards pos and state for readers outside Run
	pos        checkpoint.Position // end of last emitted record
	seeded     bool
	readOff    int64  // next unread byte in the open handle
	partial    []byte // bytes after pos not yet terminated by a newline
	discarding bool   // current line is over the limit, dropping until newline
	missing    bool   // path currently absent (logged once)

	metrics MetricStorage
}

type MetricStorage struct {
	LinesRead     atomic.Uint64
	BytesRead     atomic.Uint64
	Rotations     atomic.Uint64
	Truncations   atomic.Uint64
	SourceMissing atomic.Uint64
	Oversized     atomic.Uint64
}

func (state State) String() string {
	switch state {
	case Seeking:
		return "seeking"
	case Streaming:
		return "streaming"
	case RotationDetected:
		return "rotation-detected"
	}
	return "unknown"
}
