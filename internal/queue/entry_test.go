package queue

import (
	"context"
	"errors"
	"santasleigh/internal/global"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		maxItems  int
		maxBytes  int64
		expectErr bool
	}{
		{"valid", 4, 1024, false},
		{"zero items", 0, 1024, true},
		{"zero bytes", 4, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[int]([]string{global.NSTest}, tt.maxItems, tt.maxBytes, 0)
			if (err != nil) != tt.expectErr {
				t.Fatalf("expected error=%v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestFIFOAndClose(t *testing.T) {
	q, err := New[string]([]string{global.NSTest}, 8, 1024, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if err := q.PushBlocking(ctx, v, len(v)); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	q.Close()

	var got []string
	for {
		v, ok := q.Pop(ctx)
		if !ok {
			break
		}
		got = append(got, v)
	}

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
	if q.Metrics.Depth.Load() != 0 || q.Metrics.Bytes.Load() != 0 {
		t.Fatalf("expected empty accounting, depth=%d bytes=%d", q.Metrics.Depth.Load(), q.Metrics.Bytes.Load())
	}
}

func TestPushBlocksOnCount(t *testing.T) {
	q, _ := New[int]([]string{global.NSTest}, 1, 1024, 0)
	ctx := context.Background()

	if err := q.PushBlocking(ctx, 1, 1); err != nil {
		t.Fatalf("first push failed: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.PushBlocking(shortCtx, 2, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while full, got %v", err)
	}
	if q.Metrics.Bytes.Load() != 1 {
		t.Fatalf("expected abandoned push to release its bytes, got %d", q.Metrics.Bytes.Load())
	}
}

func TestPushBlocksOnBytesUntilPop(t *testing.T) {
	q, _ := New[int]([]string{global.NSTest}, 10, 100, 0)
	ctx := context.Background()

	if err := q.PushBlocking(ctx, 1, 80); err != nil {
		t.Fatalf("first push failed: %v", err)
	}

	pushed := make(chan error, 1)
	go func() { pushed <- q.PushBlocking(ctx, 2, 50) }()

	select {
	case err := <-pushed:
		t.Fatalf("push should block on byte limit, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if v, ok := q.Pop(ctx); !ok || v != 1 {
		t.Fatalf("unexpected pop: %v %v", v, ok)
	}

	select {
	case err := <-pushed:
		if err != nil {
			t.Fatalf("unexpected push error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("push did not unblock after pop")
	}
}

func TestOversizedItemAcceptedWhenEmpty(t *testing.T) {
	q, _ := New[int]([]string{global.NSTest}, 4, 10, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.PushBlocking(ctx, 7, 500); err != nil {
		t.Fatalf("oversized item should be accepted into empty queue: %v", err)
	}
}

func TestStallIsCounted(t *testing.T) {
	q, _ := New[int]([]string{global.NSTest}, 1, 1024, 20*time.Millisecond)
	ctx := context.Background()
	_ = q.PushBlocking(ctx, 1, 1)

	shortCtx, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
	defer cancel()
	_ = q.PushBlocking(shortCtx, 2, 1)

	if q.Metrics.PushStalls.Load() == 0 {
		t.Fatalf("expected at least one stall to be recorded")
	}
}

func TestPopCancelled(t *testing.T) {
	q, _ := New[int]([]string{global.NSTest}, 1, 10, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Pop(ctx); ok {
		t.Fatalf("expected pop to fail on cancelled context")
	}
	if _, ok := q.TryPop(); ok {
		t.Fatalf("expected empty try pop")
	}
}

func TestPeakDepthResetsPerInterval(t *testing.T) {
	q, err := New[int]([]string{global.NSTest}, 8, 1024, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	for i := range 3 {
		if err := q.PushBlocking(ctx, i, 1); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	q.Pop(ctx)
	q.Pop(ctx)

	peak := func() uint64 {
		for _, metric := range q.CollectMetrics(time.Minute) {
			if metric.Name == "peak_depth" {
				return metric.Value.Raw
			}
		}
		t.Fatalf("peak_depth not reported")
		return 0
	}
	if got := peak(); got != 3 {
		t.Fatalf("expected peak 3, got %d", got)
	}
	if got := peak(); got != 1 {
		t.Fatalf("expected peak reset to current depth 1, got %d", got)
	}
}
