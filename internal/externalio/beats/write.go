package beats

import (
	"context"
	"fmt"
	"santasleigh/internal/framing"
	"santasleigh/internal/global"
	"santasleigh/internal/parser"
	"santasleigh/internal/uploader"
	"time"
)

// Sends all events as one window. Only a full acknowledgement counts as delivered.
func (sink *Sink) Deliver(ctx context.Context, payload *framing.Payload) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()

	err = sink.connect()
	if err != nil {
		err = fmt.Errorf("%w: %w", uploader.Transient, err)
		return
	}

	events := make([]interface{}, 0, len(payload.Events))
	for _, event := range payload.Events {
		events = append(events, sink.document(payload, event))
	}

	acked, err := sink.client.Send(events)
	if err != nil || acked < len(events) {
		// Connection state is unknown, start fresh next time
		sink.client.Close()
		sink.client = nil

		if err == nil {
			err = fmt.Errorf("partial acknowledgement")
		}
		err = fmt.Errorf("beats window of %d events, %d acknowledged: %w: %w", len(events), acked, uploader.Transient, err)
		return
	}
	return
}

// ECS shaped document for one event
func (sink *Sink) document(payload *framing.Payload, event parser.Event) (fields map[string]interface{}) {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = payload.Created
	}

	fields = map[string]interface{}{
		"@timestamp": timestamp.UTC().Format(time.RFC3339Nano),
		"message":    string(event.Raw),
		"event": map[string]interface{}{
			"kind":     event.Kind,
			"module":   "santa",
			"dataset":  "santa." + event.Kind,
			"original": string(event.Raw),
		},
		"host": map[string]interface{}{
			"name":     sink.cfg.Hostname,
			"hostname": sink.cfg.Hostname,
		},
		"agent": map[string]interface{}{
			"name":    sink.cfg.Hostname,
			"type":    global.ProgBaseName,
			"version": global.ProgVersion,
			"pid":     global.PID,
		},
		"log": map[string]interface{}{
			"file": map[string]interface{}{
				"path": sink.cfg.SourcePath,
			},
			"offset": event.Source.Offset,
		},
		"labels": map[string]interface{}{
			"batch_id":  payload.BatchID.String(),
			"batch_seq": payload.Seq,
		},
	}
	return
}
