package checkpoint

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Stable identity of an opened source file
type Identity struct {
	Device uint64
	Inode  uint64
}

// Durable read position. Positions order by (Generation, Offset).
// Generation increments on every rotation or truncation.
type Position struct {
	Identity   Identity
	Offset     int64
	Generation uint64
}

// On-disk form
type record struct {
	Version    int       `json:"version"`
	Path       string    `json:"path"`
	Device     uint64    `json:"device"`
	Inode      uint64    `json:"inode"`
	Offset     int64     `json:"offset"`
	Generation uint64    `json:"generation"`
	Updated    time.Time `json:"updated"`
}

const recordVersion int = 1

type Store struct {
	Namespace  []string
	path       string // checkpoint file
	sourcePath string // informational, recorded alongside the position
	mu         sync.Mutex
	last       Position
	haveLast   bool
	metrics    MetricStorage
}

type MetricStorage struct {
	Saves    atomic.Uint64
	Failures atomic.Uint64
}

func (pos Position) Less(other Position) (less bool) {
	if pos.Generation != other.Generation {
		less = pos.Generation < other.Generation
		return
	}
	less = pos.Offset < other.Offset
	return
}

func (pos Position) String() string {
	return fmt.Sprintf("dev=%d ino=%d gen=%d off=%d", pos.Identity.Device, pos.Identity.Inode, pos.Generation, pos.Offset)
}
