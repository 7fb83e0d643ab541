package framing

import (
	"santasleigh/internal/parser"
	"time"

	"github.com/google/uuid"
)

// Content coding applied to the NDJSON body
type Encoding string

const (
	Identity Encoding = "identity"
	Gzip     Encoding = "gzip"
	Zstd     Encoding = "zstd"
	LZ4      Encoding = "lz4"
)

// Wire-ready form of a batch, shared by every sink
type Payload struct {
	BatchID  uuid.UUID
	Seq      uint64
	Created  time.Time
	Events   []parser.Event
	Body     []byte // encoded NDJSON
	Encoding Encoding
	Digest   string // hex BLAKE3-256 of Body
	RawSize  int    // NDJSON length before encoding
}
