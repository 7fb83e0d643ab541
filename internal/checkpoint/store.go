// Durable record of how far the source has been delivered and acknowledged
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"santasleigh/internal/fsutil"
	"santasleigh/internal/global"
	"time"
)

var (
	ErrCorrupt    = errors.New("checkpoint record is corrupt")
	ErrRegression = errors.New("checkpoint position would move backwards")
)

// Creates a store for the checkpoint file at path
func New(path, sourcePath string) (store *Store) {
	store = &Store{
		Namespace:  []string{global.NSCheckpoint},
		path:       path,
		sourcePath: sourcePath,
	}
	return
}

// Path of the checkpoint file
func (store *Store) Path() string {
	return store.path
}

// Ensures the checkpoint directory exists and is writable
func (store *Store) Check() (err error) {
	err = fsutil.ProbeWritable(filepath.Dir(store.path))
	if err != nil {
		err = fmt.Errorf("checkpoint storage unavailable: %w", err)
	}
	return
}

// Reads the persisted position. found is false on a fresh host.
// A leftover temporary file from an interrupted save is removed.
func (store *Store) Load() (pos Position, found bool, err error) {
	_ = os.Remove(store.path + fsutil.TempSuffix)

	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to read checkpoint: %w", err)
		return
	}

	var rec record
	err = json.Unmarshal(data, &rec)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrCorrupt, err)
		return
	}
	if rec.Version != recordVersion || rec.Offset < 0 {
		err = fmt.Errorf("%w: unsupported version %d or negative offset %d", ErrCorrupt, rec.Version, rec.Offset)
		return
	}

	pos = Position{
		Identity:   Identity{Device: rec.Device, Inode: rec.Inode},
		Offset:     rec.Offset,
		Generation: rec.Generation,
	}
	found = true

	store.mu.Lock()
	store.last = pos
	store.haveLast = true
	store.mu.Unlock()
	return
}

// Atomically persists pos. Saving an older position than the last one is refused.
func (store *Store) Save(pos Position) (err error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.haveLast {
		if pos == store.last {
			return
		}
		if pos.Less(store.last) {
			err = fmt.Errorf("%w: have %s, got %s", ErrRegression, store.last, pos)
			return
		}
	}

	rec := record{
		Version:    recordVersion,
		Path:       store.sourcePath,
		Device:     pos.Identity.Device,
		Inode:      pos.Identity.Inode,
		Offset:     pos.Offset,
		Generation: pos.Generation,
		Updated:    time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to encode checkpoint: %w", err)
		return
	}
	data = append(data, '\n')

	err = fsutil.WriteFileAtomic(store.path, data, 0600)
	if err != nil {
		store.metrics.Failures.Add(1)
		err = fmt.Errorf("failed to save checkpoint: %w", err)
		return
	}

	store.metrics.Saves.Add(1)
	store.last = pos
	store.haveLast = true
	return
}

// Last position successfully loaded or saved
func (store *Store) Last() (pos Position, ok bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	pos, ok = store.last, store.haveLast
	return
}
