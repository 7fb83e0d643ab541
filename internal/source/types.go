package source

import "santasleigh/internal/checkpoint"

// One opened file. Reads are positional so the tailer owns the offset.
type Handle interface {
	Identity() checkpoint.Identity
	Size() (size int64, err error)
	ReadAt(p []byte, off int64) (n int, err error)
	Close() error
}

// Whatever currently lives at the configured path
type Opener interface {
	Path() string
	Open() (handle Handle, err error)                            // errors wrap os.ErrNotExist when missing
	Stat() (identity checkpoint.Identity, size int64, err error) // identity of the path right now
}

// Wakes the tailer when the source may have changed. Events may be spurious or coalesced.
type Notifier interface {
	Events() <-chan struct{}
	Close() error
}
