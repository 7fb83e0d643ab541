package spill

import (
	"sync"
	"sync/atomic"
	"time"
)

type Reason string

const (
	ReasonRejected  Reason = "rejected"  // endpoint refused the content, quarantined
	ReasonAuth      Reason = "auth"      // credentials refused, retried later
	ReasonExhausted Reason = "exhausted" // retry ceiling reached, retried later
)

// Durable copy of a batch the sink did not accept
type Record struct {
	BatchID    string    `cbor:"1,keyasint"`
	Seq        uint64    `cbor:"2,keyasint"`
	Reason     Reason    `cbor:"3,keyasint"`
	Replayable bool      `cbor:"4,keyasint"`
	Created    time.Time `cbor:"5,keyasint"`
	Body       []byte    `cbor:"6,keyasint"`
	Encoding   string    `cbor:"7,keyasint"`
	Digest     string    `cbor:"8,keyasint"`
	Events     int       `cbor:"9,keyasint"`
	LastError  string    `cbor:"10,keyasint,omitempty"`
}

type Entry struct {
	Name string
	Size int64
}

type Store struct {
	Namespace []string
	dir       string
	maxBytes  int64
	secret    []byte // nil stores records unsealed
	mu        sync.Mutex
	metrics   MetricStorage
}

type MetricStorage struct {
	Written  atomic.Uint64
	Evicted  atomic.Uint64
	Failures atomic.Uint64
}

const (
	fileSuffix    string = ".spill"
	formatVersion byte   = 1
	headerLen     int    = 6 // magic, version, suite
	keyNamespace  string = "santa-sleigh spill "
)

var magic = [4]byte{'S', 'S', 'P', 'L'}
