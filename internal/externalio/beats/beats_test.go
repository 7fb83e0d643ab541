package beats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"santasleigh/internal/batcher"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/framing"
	"santasleigh/internal/parser"
	"santasleigh/internal/tailer"
	"santasleigh/internal/uploader"
	"testing"
	"time"

	server "github.com/elastic/go-lumber/server/v2"
)

func testPayload(t *testing.T, count int) *framing.Payload {
	t.Helper()
	b := batcher.New(batcher.Config{MaxEvents: count, MaxWait: time.Minute})
	var batch *batcher.Batch
	for i := range count {
		line := fmt.Sprintf(`{"kind":"execution","timestamp":"2026-01-02T03:04:05Z","n":%d}`, i)
		batch = b.Add(parser.Parse(tailer.RawRecord{
			Line: []byte(line),
			End:  checkpoint.Position{Offset: int64((i + 1) * 100)},
		}), time.Now())
	}
	payload, err := framing.Frame(batch, framing.Identity)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return payload
}

// Starts a lumberjack v2 server that acknowledges every window
func startServer(t *testing.T) (address string, received chan []interface{}) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, err := server.NewWithListener(listener, server.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	received = make(chan []interface{}, 8)
	go func() {
		for batch := range srv.ReceiveChan() {
			received <- batch.Events
			batch.ACK()
		}
	}()
	address = listener.Addr().String()
	return
}

func TestDeliverSendsWindow(t *testing.T) {
	address, received := startServer(t)

	sink, err := New(Config{
		Address:    address,
		Hostname:   "mac-01",
		SourcePath: "/var/db/santa/log.ndjson",
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer sink.Close()

	payload := testPayload(t, 3)
	// Twice over the same connection
	for range 2 {
		if err := sink.Deliver(context.Background(), payload); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		select {
		case events := <-received:
			if len(events) != 3 {
				t.Fatalf("expected 3 events in window, got %d", len(events))
			}
			doc, ok := events[0].(map[string]interface{})
			if !ok {
				t.Fatalf("expected object event, got %T", events[0])
			}
			if doc["message"] != string(payload.Events[0].Raw) {
				t.Fatalf("unexpected message %v", doc["message"])
			}
			if doc["@timestamp"] != "2026-01-02T03:04:05Z" {
				t.Fatalf("unexpected @timestamp %v", doc["@timestamp"])
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("server received nothing")
		}
	}
}

func TestDeliverUnreachableIsTransient(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	address := listener.Addr().String()
	listener.Close()

	sink, err := New(Config{Address: address, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer sink.Close()

	err = sink.Deliver(context.Background(), testPayload(t, 1))
	if !errors.Is(err, uploader.Transient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestDeliverCancelled(t *testing.T) {
	sink, err := New(Config{Address: "127.0.0.1:5044"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Deliver(ctx, testPayload(t, 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing port", Config{Address: "logstash.example.com"}},
		{"compression too high", Config{Address: "logstash:5044", CompressionLevel: 10}},
		{"cert without key", Config{Address: "logstash:5044", TLS: true, CertFile: "client.pem"}},
		{"missing CA", Config{Address: "logstash:5044", TLS: true, CAFile: "/nonexistent/ca.pem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDocumentFields(t *testing.T) {
	sink, err := New(Config{Address: "logstash:5044", Hostname: "mac-01", SourcePath: "/var/log/pedro/log.ndjson"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	payload := testPayload(t, 2)
	doc := sink.document(payload, payload.Events[1])

	event := doc["event"].(map[string]interface{})
	if event["kind"] != "execution" {
		t.Fatalf("unexpected event.kind %v", event["kind"])
	}
	host := doc["host"].(map[string]interface{})
	if host["name"] != "mac-01" {
		t.Fatalf("unexpected host.name %v", host["name"])
	}
	log := doc["log"].(map[string]interface{})
	if log["offset"] != int64(200) {
		t.Fatalf("unexpected log.offset %v", log["offset"])
	}
	file := log["file"].(map[string]interface{})
	if file["path"] != "/var/log/pedro/log.ndjson" {
		t.Fatalf("unexpected log.file.path %v", file["path"])
	}
	labels := doc["labels"].(map[string]interface{})
	if labels["batch_id"] != payload.BatchID.String() {
		t.Fatalf("unexpected batch id %v", labels["batch_id"])
	}
}
