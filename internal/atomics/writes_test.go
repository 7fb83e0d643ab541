package atomics

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSubtractFloor(t *testing.T) {
	tests := []struct {
		name      string
		initial   int64
		subtract  int64
		wantFinal int64
	}{
		{"already zero", 0, 5, 0},
		{"simple subtraction", 10, 3, 7},
		{"subtract more than available", 5, 10, 0},
		{"exact", 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a atomic.Int64
			a.Store(tt.initial)

			got := SubtractFloor(&a, tt.subtract)
			if got != tt.wantFinal || a.Load() != tt.wantFinal {
				t.Fatalf("expected %d, got return %d stored %d", tt.wantFinal, got, a.Load())
			}
		})
	}
}

func TestSubtractFloorConcurrent(t *testing.T) {
	var a atomic.Int64
	a.Store(1000)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				SubtractFloor(&a, 1)
			}
		}()
	}
	wg.Wait()

	if a.Load() != 0 {
		t.Fatalf("expected 0 after concurrent subtraction, got %d", a.Load())
	}
}

func TestStoreMax(t *testing.T) {
	tests := []struct {
		name       string
		initial    int64
		candidate  int64
		wantRaised bool
		wantFinal  int64
	}{
		{"higher raises", 3, 7, true, 7},
		{"lower ignored", 7, 3, false, 7},
		{"equal ignored", 5, 5, false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a atomic.Int64
			a.Store(tt.initial)

			raised := StoreMax(&a, tt.candidate)
			if raised != tt.wantRaised || a.Load() != tt.wantFinal {
				t.Fatalf("expected raised=%v final=%d, got raised=%v final=%d", tt.wantRaised, tt.wantFinal, raised, a.Load())
			}
		})
	}
}
