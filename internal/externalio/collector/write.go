package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"santasleigh/internal/framing"
	"santasleigh/internal/global"
	"santasleigh/internal/uploader"
	"strconv"
)

// Posts the payload. Any 2xx response acknowledges the whole batch.
func (sink *Sink) Deliver(ctx context.Context, payload *framing.Payload) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sink.url, bytes.NewReader(payload.Body))
	if err != nil {
		err = fmt.Errorf("failed request creation: %w: %w", uploader.Rejected, err)
		return
	}

	for name, value := range sink.cfg.Headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if payload.Encoding != framing.Identity {
		req.Header.Set("Content-Encoding", string(payload.Encoding))
	}
	if sink.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sink.cfg.Token)
	}
	req.Header.Set("User-Agent", global.ProgBaseName+"/"+global.ProgVersion)
	req.Header.Set("X-Batch-ID", payload.BatchID.String())
	req.Header.Set("X-Batch-Seq", strconv.FormatUint(payload.Seq, 10))
	req.Header.Set("X-Batch-Events", strconv.Itoa(len(payload.Events)))
	req.Header.Set("X-Content-Blake3", payload.Digest)
	if sink.cfg.Hostname != "" {
		req.Header.Set("X-Instance-ID", sink.cfg.Hostname)
	}

	resp, err := sink.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed HTTP request: %w: %w", uploader.Transient, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err = fmt.Errorf("received HTTP status '%s': %w", resp.Status, uploader.ClassifyHTTPStatus(resp.StatusCode))
	if len(bytes.TrimSpace(detail)) > 0 {
		err = fmt.Errorf("%w: %s", err, bytes.TrimSpace(detail))
	}
	return
}
