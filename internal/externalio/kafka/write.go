package kafka

import (
	"context"
	"errors"
	"fmt"
	"santasleigh/internal/framing"
	"santasleigh/internal/uploader"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
)

func (sink *Sink) Deliver(ctx context.Context, payload *framing.Payload) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	err = sink.writer.WriteMessages(ctx, sink.messages(payload)...)
	if err != nil {
		err = fmt.Errorf("failed to publish batch %s to %s: %w: %w", payload.BatchID, sink.cfg.Topic, classify(err), err)
		return
	}
	return
}

func (sink *Sink) messages(payload *framing.Payload) (msgs []kafkago.Message) {
	headers := []kafkago.Header{
		{Key: "batch-id", Value: []byte(payload.BatchID.String())},
		{Key: "batch-seq", Value: []byte(strconv.FormatUint(payload.Seq, 10))},
		{Key: "batch-events", Value: []byte(strconv.Itoa(len(payload.Events)))},
		{Key: "batch-blake3", Value: []byte(payload.Digest)},
	}

	msgs = make([]kafkago.Message, 0, len(payload.Events))
	for _, event := range payload.Events {
		msg := kafkago.Message{
			Key:     []byte(sink.cfg.Hostname),
			Value:   event.Raw,
			Headers: append(headers[:len(headers):len(headers)], kafkago.Header{Key: "event-kind", Value: []byte(event.Kind)}),
		}
		if !event.Timestamp.IsZero() {
			msg.Time = event.Timestamp
		}
		msgs = append(msgs, msg)
	}
	return
}

// Maps producer errors to uploader classes.
// With several per-message errors, any retryable one makes the whole batch retryable.
func classify(err error) (class error) {
	var writeErrs kafkago.WriteErrors
	if !errors.As(err, &writeErrs) {
		class = classifyOne(err)
		return
	}

	class = uploader.Rejected
	for _, msgErr := range writeErrs {
		if msgErr == nil {
			continue
		}
		switch classifyOne(msgErr) {
		case uploader.Transient:
			class = uploader.Transient
			return
		case uploader.AuthFailed:
			class = uploader.AuthFailed
		}
	}
	return
}

func classifyOne(err error) (class error) {
	var code kafkago.Error
	if !errors.As(err, &code) {
		// Network and context failures
		class = uploader.Transient
		return
	}

	switch {
	case authCodes[code]:
		class = uploader.AuthFailed
	case code.Temporary():
		class = uploader.Transient
	default:
		class = uploader.Rejected
	}
	return
}
