package atomics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitUntilZero(t *testing.T) {
	tests := []struct {
		name          string
		initial       int64
		mutate        func(a *atomic.Int64)
		maxWaitTime   time.Duration
		expectReached bool
	}{
		{
			name:          "already zero",
			initial:       0,
			mutate:        func(a *atomic.Int64) {},
			maxWaitTime:   200 * time.Millisecond,
			expectReached: true,
		},
		{
			name:    "eventually reaches zero",
			initial: 5,
			mutate: func(a *atomic.Int64) {
				go func() {
					time.Sleep(100 * time.Millisecond)
					a.Store(0)
				}()
			},
			maxWaitTime:   2 * time.Second,
			expectReached: true,
		},
		{
			name:          "never reaches zero",
			initial:       3,
			mutate:        func(a *atomic.Int64) {},
			maxWaitTime:   200 * time.Millisecond,
			expectReached: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a atomic.Int64
			a.Store(tt.initial)
			tt.mutate(&a)

			reached, last := WaitUntilZero(context.Background(), &a, tt.maxWaitTime)
			if reached != tt.expectReached {
				t.Fatalf("expected reached=%v, got %v (last=%d)", tt.expectReached, reached, last)
			}
			if reached && last != 0 {
				t.Fatalf("expected last value to be 0, got %d", last)
			}
		})
	}
}

func TestWaitUntilZeroCancelled(t *testing.T) {
	var a atomic.Int64
	a.Store(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	reached, _ := WaitUntilZero(ctx, &a, 10*time.Second)
	if reached {
		t.Fatalf("expected not reached on cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancelled wait took too long: %v", time.Since(start))
	}
}
