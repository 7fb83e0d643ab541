package atomics

import "sync/atomic"

// Subtracts value from source without going below zero. Returns the new value.
func SubtractFloor(source *atomic.Int64, value int64) (newValue int64) {
	for {
		current := source.Load()
		newValue = current - value
		if newValue < 0 {
			newValue = 0
		}

		// CAS only succeeds if nobody changed the value since the load
		if source.CompareAndSwap(current, newValue) {
			return
		}
	}
}

// Raises target to candidate if candidate is larger. Returns true when it changed.
func StoreMax(target *atomic.Int64, candidate int64) (raised bool) {
	for {
		current := target.Load()
		if candidate <= current {
			return
		}
		if target.CompareAndSwap(current, candidate) {
			raised = true
			return
		}
	}
}
