package source

import (
	"fmt"
	"io"
	"os"
	"santasleigh/internal/checkpoint"
	"sync"
)

// In-memory stand-in for a rotating log file
type Simulated struct {
	mu        sync.Mutex
	path      string
	current   *memFile // nil when removed
	nextInode uint64
	events    chan struct{}
}

type memFile struct {
	mu       sync.Mutex
	identity checkpoint.Identity
	data     []byte
}

type memHandle struct {
	file *memFile
}

func NewSimulated(path string) (sim *Simulated) {
	sim = &Simulated{
		path:      path,
		nextInode: 100,
		events:    make(chan struct{}, 1),
	}
	sim.Create()
	return
}

func (sim *Simulated) Path() string {
	return sim.path
}

func (sim *Simulated) Open() (handle Handle, err error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.current == nil {
		err = fmt.Errorf("open %s: %w", sim.path, os.ErrNotExist)
		return
	}
	handle = &memHandle{file: sim.current}
	return
}

func (sim *Simulated) Stat() (identity checkpoint.Identity, size int64, err error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.current == nil {
		err = fmt.Errorf("stat %s: %w", sim.path, os.ErrNotExist)
		return
	}
	identity = sim.current.identity
	size = sim.current.size()
	return
}

// Appends bytes to the file currently at the path
func (sim *Simulated) Append(data string) {
	sim.mu.Lock()
	file := sim.current
	sim.mu.Unlock()

	if file != nil {
		file.mu.Lock()
		file.data = append(file.data, data...)
		file.mu.Unlock()
	}
	sim.notify()
}

// Replaces the path with a new empty file. Old handles keep reading the old file.
func (sim *Simulated) Rotate() {
	sim.Create()
}

// Creates a fresh empty file at the path with a new identity
func (sim *Simulated) Create() {
	sim.mu.Lock()
	sim.nextInode++
	sim.current = &memFile{identity: checkpoint.Identity{Device: 1, Inode: sim.nextInode}}
	sim.mu.Unlock()
	sim.notify()
}

// Truncates the current file in place (same identity)
func (sim *Simulated) Truncate() {
	sim.mu.Lock()
	file := sim.current
	sim.mu.Unlock()

	if file != nil {
		file.mu.Lock()
		file.data = file.data[:0:0]
		file.mu.Unlock()
	}
	sim.notify()
}

// Unlinks the path
func (sim *Simulated) Remove() {
	sim.mu.Lock()
	sim.current = nil
	sim.mu.Unlock()
	sim.notify()
}

// Simulated also acts as its own change notifier
func (sim *Simulated) Events() <-chan struct{} {
	return sim.events
}

func (sim *Simulated) Close() error {
	return nil
}

func (sim *Simulated) notify() {
	select {
	case sim.events <- struct{}{}:
	default:
	}
}

func (file *memFile) size() int64 {
	file.mu.Lock()
	defer file.mu.Unlock()
	return int64(len(file.data))
}

func (handle *memHandle) Identity() checkpoint.Identity {
	return handle.file.identity
}

func (handle *memHandle) Size() (size int64, err error) {
	size = handle.file.size()
	return
}

func (handle *memHandle) ReadAt(p []byte, off int64) (n int, err error) {
	handle.file.mu.Lock()
	defer handle.file.mu.Unlock()

	if off >= int64(len(handle.file.data)) {
		err = io.EOF
		return
	}
	n = copy(p, handle.file.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

func (handle *memHandle) Close() error {
	return nil
}
