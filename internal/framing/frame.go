// Encodes batches into the NDJSON payload every sink sends
package framing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"santasleigh/internal/batcher"
	"santasleigh/internal/parser"
	"santasleigh/internal/tailer"

	"github.com/zeebo/blake3"
)

var ErrDigestMismatch = errors.New("payload digest mismatch")

// Builds the payload for a sealed batch. Raw lines are forwarded verbatim, one per line.
func Frame(batch *batcher.Batch, encoding Encoding) (payload *Payload, err error) {
	var body bytes.Buffer
	body.Grow(batch.Bytes)
	for _, event := range batch.Events {
		body.Write(event.Raw)
		body.WriteByte('\n')
	}

	encoded, err := encode(body.Bytes(), encoding)
	if err != nil {
		err = fmt.Errorf("failed to encode batch %d: %w", batch.Seq, err)
		return
	}

	payload = &Payload{
		BatchID:  batch.ID,
		Seq:      batch.Seq,
		Created:  batch.Created,
		Events:   batch.Events,
		Body:     encoded,
		Encoding: encoding,
		Digest:   Digest(encoded),
		RawSize:  body.Len(),
	}
	return
}

func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Rebuilds events from a stored payload body. Positions are not recoverable and stay zero.
func (payload *Payload) Restore() (err error) {
	if Digest(payload.Body) != payload.Digest {
		err = fmt.Errorf("batch %s: %w", payload.BatchID, ErrDigestMismatch)
		return
	}

	decoded, err := Decode(payload.Body, payload.Encoding)
	if err != nil {
		return
	}
	payload.RawSize = len(decoded)

	payload.Events = payload.Events[:0]
	for line := range bytes.Lines(decoded) {
		result := parser.Parse(tailer.RawRecord{Line: bytes.TrimSuffix(line, []byte{'\n'})})
		if result.Event != nil {
			payload.Events = append(payload.Events, *result.Event)
		}
	}
	return
}
