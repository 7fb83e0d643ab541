package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"santasleigh/internal/batcher"
	"santasleigh/internal/framing"
	"santasleigh/internal/parser"
	"santasleigh/internal/tailer"
	"santasleigh/internal/uploader"
	"strings"
	"sync"
	"testing"
	"time"
)

func testPayload(t *testing.T, encoding framing.Encoding) *framing.Payload {
	t.Helper()
	b := batcher.New(batcher.Config{MaxEvents: 1, MaxWait: time.Minute})
	batch := b.Add(parser.Parse(tailer.RawRecord{Line: []byte(`{"kind":"exec"}`)}), time.Date(2024, 5, 1, 23, 59, 58, 0, time.FixedZone("PDT", -7*3600)))
	payload, err := framing.Frame(batch, encoding)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return payload
}

func TestObjectKey(t *testing.T) {
	payload := testPayload(t, framing.Gzip)

	tests := []struct {
		prefix   string
		expected string
	}{
		{"", "hostname=mac-01/date=20240502/log-20240502T065958Z-%s.json.gz"},
		{"/santa/raw/", "santa/raw/hostname=mac-01/date=20240502/log-20240502T065958Z-%s.json.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			sink, err := New(context.Background(), Config{
				Region: "us-east-1", Bucket: "telemetry", Prefix: tt.prefix,
				AccessKey: "AKID", SecretKey: "SECRET", Hostname: "mac-01", NameRoot: "log",
			})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if key := sink.objectKey(payload); key != fmt.Sprintf(tt.expected, payload.BatchID) {
				t.Fatalf("unexpected key %q", key)
			}
		})
	}
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	if _, err := New(context.Background(), Config{Bucket: "b"}); err == nil {
		t.Fatalf("missing region should fail")
	}
	if _, err := New(context.Background(), Config{Region: "us-east-1"}); err == nil {
		t.Fatalf("missing bucket should fail")
	}
}

type fakeS3 struct {
	mu     sync.Mutex
	status int
	code   string
	paths  []string
	bodies [][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, body)

	if f.status != 0 && f.status != http.StatusOK {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(f.status)
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>test</Message></Error>`, f.code)
		return
	}
	w.Header().Set("ETag", `"abc"`)
	w.WriteHeader(http.StatusOK)
}

func TestDeliver(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		expected error
	}{
		{"ok", http.StatusOK, "", nil},
		{"access denied", http.StatusForbidden, "AccessDenied", uploader.AuthFailed},
		{"no bucket", http.StatusNotFound, "NoSuchBucket", uploader.Rejected},
		{"slow down", http.StatusServiceUnavailable, "SlowDown", uploader.Transient},
		{"bad request", http.StatusBadRequest, "MalformedXML", uploader.Rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{status: tt.status, code: tt.code}
			server := httptest.NewServer(fake)
			defer server.Close()

			sink, err := New(context.Background(), Config{
				Region: "us-east-1", Bucket: "telemetry", Endpoint: server.URL, UsePathStyle: true,
				AccessKey: "AKID", SecretKey: "SECRET", Hostname: "mac-01",
			})
			if err != nil {
				t.Fatalf("new: %v", err)
			}

			payload := testPayload(t, framing.Identity)
			err = sink.Deliver(context.Background(), payload)

			if tt.expected == nil {
				if err != nil {
					t.Fatalf("deliver: %v", err)
				}
				fake.mu.Lock()
				defer fake.mu.Unlock()
				if len(fake.paths) != 1 || !strings.HasPrefix(fake.paths[0], "PUT /telemetry/hostname=mac-01/date=20240502/") {
					t.Fatalf("unexpected requests %v", fake.paths)
				}
				// The SDK may wrap the body in aws-chunked framing
				if !bytes.Contains(fake.bodies[0], payload.Body) {
					t.Fatalf("object body should carry the payload")
				}
				return
			}
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
			fake.mu.Lock()
			defer fake.mu.Unlock()
			if len(fake.paths) != 1 {
				t.Fatalf("sdk retries should be disabled, saw %d requests", len(fake.paths))
			}
		})
	}
}
