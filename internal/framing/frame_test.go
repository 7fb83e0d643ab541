package framing

import (
	"errors"
	"fmt"
	"santasleigh/internal/batcher"
	"santasleigh/internal/parser"
	"santasleigh/internal/tailer"
	"strings"
	"testing"
	"time"
)

func testBatch(t *testing.T, count int) (batch *batcher.Batch) {
	t.Helper()
	b := batcher.New(batcher.Config{MaxEvents: count, MaxWait: time.Minute})
	for i := range count {
		line := fmt.Sprintf(`{"kind":"execution","seq":%d,"path":"/usr/bin/true"}`, i)
		batch = b.Add(parser.Parse(tailer.RawRecord{Line: []byte(line)}), time.Unix(100, 0))
	}
	if batch == nil {
		t.Fatalf("batch was not sealed")
	}
	return
}

func TestFrameAndRestore(t *testing.T) {
	tests := []Encoding{Identity, Gzip, Zstd, LZ4}

	for _, encoding := range tests {
		t.Run(string(encoding), func(t *testing.T) {
			batch := testBatch(t, 20)
			payload, err := Frame(batch, encoding)
			if err != nil {
				t.Fatalf("frame: %v", err)
			}

			decoded, err := Decode(payload.Body, encoding)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			lines := strings.Split(strings.TrimSuffix(string(decoded), "\n"), "\n")
			if len(lines) != 20 || lines[3] != string(batch.Events[3].Raw) {
				t.Fatalf("body should hold one raw line per event")
			}
			if payload.RawSize != len(decoded) || payload.RawSize != batch.Bytes {
				t.Fatalf("raw size %d, decoded %d, batch bytes %d", payload.RawSize, len(decoded), batch.Bytes)
			}

			stored := &Payload{BatchID: payload.BatchID, Body: payload.Body, Encoding: encoding, Digest: payload.Digest}
			if err := stored.Restore(); err != nil {
				t.Fatalf("restore: %v", err)
			}
			if len(stored.Events) != 20 || stored.Events[7].Fields["seq"] != "7" {
				t.Fatalf("restored events do not match")
			}
		})
	}
}

func TestRestoreRejectsTamperedBody(t *testing.T) {
	payload, err := Frame(testBatch(t, 2), Identity)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	payload.Body[0] = ' '

	if err := payload.Restore(); !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name      string
		expected  Encoding
		extension string
		wantErr   bool
	}{
		{"", Identity, "", false},
		{"none", Identity, "", false},
		{"gzip", Gzip, ".gz", false},
		{"zstd", Zstd, ".zst", false},
		{"lz4", LZ4, ".lz4", false},
		{"brotli", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoding, err := ParseEncoding(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if encoding != tt.expected || encoding.Extension() != tt.extension {
				t.Fatalf("got %q %q", encoding, encoding.Extension())
			}
		})
	}
}
