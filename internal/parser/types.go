package parser

import (
	"santasleigh/internal/checkpoint"
	"time"
)

// One decoded telemetry record. Raw is forwarded verbatim.
type Event struct {
	Timestamp time.Time
	Kind      string
	Fields    map[string]string // top-level scalar values
	Raw       []byte
	Source    checkpoint.Position
}

type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonInvalidUTF8 Reason = "invalid_utf8"
	ReasonInvalidJSON Reason = "invalid_json"
	ReasonNotObject   Reason = "not_object"
	ReasonOversized   Reason = "oversized"
)

// A line that could not become an Event
type Failure struct {
	Reason  Reason
	Excerpt string
	Source  checkpoint.Position
}

// Outcome of parsing one line: exactly one of Event or Failure is set
type Result struct {
	Event   *Event
	Failure *Failure
}

const MaxExcerpt int = 256

// Checked in order, first present wins
var timestampKeys = []string{"timestamp", "event_time", "time", "@timestamp"}

var kindKeys = []string{"kind", "event_type", "type"}

const unknownKind string = "unknown"
