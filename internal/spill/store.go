// Durable on-disk holding area for batches the sink would not take
package spill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"santasleigh/internal/framing"
	"santasleigh/internal/fsutil"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"slices"
	"strings"
)

// Opens (creating if needed) the spill directory. An empty secret stores records unsealed.
func Open(dir string, maxBytes int64, secret string) (store *Store, err error) {
	if maxBytes <= 0 {
		maxBytes = global.DefaultSpillMaxBytes
	}

	err = os.MkdirAll(dir, 0700)
	if err != nil {
		err = fmt.Errorf("failed to create spill directory: %w", err)
		return
	}

	stale, err := filepath.Glob(filepath.Join(dir, "*"+fileSuffix+fsutil.TempSuffix))
	if err != nil {
		err = fmt.Errorf("failed to scan spill directory: %w", err)
		return
	}
	for _, path := range stale {
		os.Remove(path)
	}

	store = &Store{
		Namespace: []string{global.NSSpill},
		dir:       dir,
		maxBytes:  maxBytes,
	}
	if secret != "" {
		store.secret = []byte(secret)
	}
	return
}

func (store *Store) Dir() string {
	return store.dir
}

// Builds a record from an undeliverable payload
func NewRecord(payload *framing.Payload, reason Reason, lastErr error) (record Record) {
	record = Record{
		BatchID:    payload.BatchID.String(),
		Seq:        payload.Seq,
		Reason:     reason,
		Replayable: reason != ReasonRejected,
		Created:    payload.Created,
		Body:       payload.Body,
		Encoding:   string(payload.Encoding),
		Digest:     payload.Digest,
		Events:     len(payload.Events),
	}
	if lastErr != nil {
		record.LastError = lastErr.Error()
	}
	return
}

// Rebuilds the payload for redelivery, verifying the body digest
func (record Record) Payload() (payload *framing.Payload, err error) {
	encoding, err := framing.ParseEncoding(record.Encoding)
	if err != nil {
		return
	}
	payload = &framing.Payload{
		Seq:      record.Seq,
		Created:  record.Created,
		Body:     record.Body,
		Encoding: encoding,
		Digest:   record.Digest,
	}
	err = payload.BatchID.UnmarshalText([]byte(record.BatchID))
	if err != nil {
		err = fmt.Errorf("invalid batch id %q: %w", record.BatchID, err)
		return
	}
	err = payload.Restore()
	return
}

// Persists the record, then evicts the oldest records beyond the size ceiling
func (store *Store) Write(ctx context.Context, record Record) (name string, err error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	data, err := marshal(record, store.secret)
	if err != nil {
		store.metrics.Failures.Add(1)
		return
	}

	name = fmt.Sprintf("%020d-%s%s", record.Created.UnixNano(), record.BatchID, fileSuffix)
	err = fsutil.WriteFileAtomic(filepath.Join(store.dir, name), data, 0600)
	if err != nil {
		store.metrics.Failures.Add(1)
		err = fmt.Errorf("failed to write spill record: %w", err)
		return
	}
	store.metrics.Written.Add(1)

	store.evict(ctx, name)
	return
}

// Oldest-first eviction down to maxBytes, never removing keep
func (store *Store) evict(ctx context.Context, keep string) {
	entries, err := store.list()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "spill size check failed: %v\n", err)
		return
	}

	var total int64
	for _, entry := range entries {
		total += entry.Size
	}

	for _, entry := range entries {
		if total <= store.maxBytes {
			break
		}
		if entry.Name == keep {
			continue
		}

		err = os.Remove(filepath.Join(store.dir, entry.Name))
		if err != nil && !os.IsNotExist(err) {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to evict spill record %s: %v\n", entry.Name, err)
			continue
		}
		total -= entry.Size
		store.metrics.Evicted.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"spill directory over %d bytes, evicted oldest record %s\n", store.maxBytes, entry.Name)
	}
}

// Records oldest first
func (store *Store) List() (entries []Entry, err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	entries, err = store.list()
	return
}

func (store *Store) list() (entries []Entry, err error) {
	dirEntries, err := os.ReadDir(store.dir)
	if err != nil {
		err = fmt.Errorf("failed to read spill directory: %w", err)
		return
	}

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), fileSuffix) {
			continue
		}
		info, infoErr := dirEntry.Info()
		if infoErr != nil {
			continue // removed concurrently
		}
		entries = append(entries, Entry{Name: dirEntry.Name(), Size: info.Size()})
	}

	// Names start with a zero padded timestamp
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return
}

func (store *Store) Read(name string) (record Record, err error) {
	data, err := os.ReadFile(filepath.Join(store.dir, filepath.Base(name)))
	if err != nil {
		err = fmt.Errorf("failed to read spill record: %w", err)
		return
	}
	record, err = unmarshal(data, store.secret)
	if err != nil {
		err = fmt.Errorf("spill record %s: %w", name, err)
	}
	return
}

func (store *Store) Delete(name string) (err error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	err = os.Remove(filepath.Join(store.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		err = fmt.Errorf("failed to delete spill record: %w", err)
		return
	}
	err = fsutil.SyncDir(store.dir)
	return
}
