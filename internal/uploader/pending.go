package uploader

import (
	"santasleigh/internal/checkpoint"
	"sync"
)

// Completion tracker. The watermark only moves over a contiguous run of completed
// sequence numbers so no batch is ever committed ahead of an earlier one.
type pendingSet struct {
	mu        sync.Mutex
	watermark uint64 // highest seq with every lower seq completed
	done      map[uint64]checkpoint.Position
	committed checkpoint.Position
	have      bool
}

func newPendingSet() *pendingSet {
	return &pendingSet{done: make(map[uint64]checkpoint.Position)}
}

// Marks seq complete. Returns the new commit position when the watermark moved.
func (set *pendingSet) Complete(seq uint64, end checkpoint.Position) (commit checkpoint.Position, advanced bool) {
	set.mu.Lock()
	defer set.mu.Unlock()

	if seq <= set.watermark {
		return
	}
	set.done[seq] = end

	for {
		pos, ok := set.done[set.watermark+1]
		if !ok {
			break
		}
		delete(set.done, set.watermark+1)
		set.watermark++
		if !set.have || set.committed.Less(pos) {
			set.committed = pos
			set.have = true
		}
		advanced = true
	}
	commit = set.committed
	return
}

// Highest contiguous completed position
func (set *pendingSet) Committed() (pos checkpoint.Position, ok bool) {
	set.mu.Lock()
	defer set.mu.Unlock()
	pos, ok = set.committed, set.have
	return
}

// Completed batches still waiting on an earlier one
func (set *pendingSet) Waiting() (count int) {
	set.mu.Lock()
	defer set.mu.Unlock()
	count = len(set.done)
	return
}
