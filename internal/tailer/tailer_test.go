package tailer

import (
	"context"
	"errors"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/queue"
	"santasleigh/internal/source"
	"strings"
	"testing"
	"time"
)

type collector struct {
	records []RawRecord
	fail    error
}

func (c *collector) PushBlocking(ctx context.Context, record RawRecord, size int) (err error) {
	if c.fail != nil {
		return c.fail
	}
	c.records = append(c.records, record)
	return
}

func (c *collector) lines() (lines []string) {
	for _, record := range c.records {
		lines = append(lines, string(record.Line))
	}
	return
}

// Steps the state machine until it reports no progress
func drive(t *testing.T, tailer *Tailer) {
	t.Helper()
	for range 1000 {
		progressed, err := tailer.step(context.Background())
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if !progressed {
			return
		}
	}
	t.Fatalf("tailer did not settle")
}

func equalLines(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStartPolicy(t *testing.T) {
	tests := []struct {
		name       string
		startAtEnd bool
		expected   []string
	}{
		{"beginning", false, []string{"old", "new"}},
		{"end", true, []string{"new"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := source.NewSimulated("/sim/telemetry.log")
			sim.Append("old\n")

			out := &collector{}
			tailer := New(Config{StartAtEnd: tt.startAtEnd}, sim, nil, out, nil)
			drive(t, tailer)

			sim.Append("new\n")
			drive(t, tailer)

			if !equalLines(out.lines(), tt.expected) {
				t.Fatalf("expected %q, got %q", tt.expected, out.lines())
			}
			last := out.records[len(out.records)-1]
			if last.End.Offset != 8 || last.End.Generation != 0 {
				t.Fatalf("unexpected end position %s", last.End)
			}
		})
	}
}

func TestStartAtEndSkipsToLineBoundary(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		appended string
		expected []string
	}{
		{"line being written", "old\n{\"par", "tial\":1}\nnew\n", []string{`{"partial":1}`, "new"}},
		{"ends on newline", "old\n", "new\n", []string{"new"}},
		{"no newline yet", "abc", "def\n", []string{"abcdef"}},
		{"boundary beyond one read window", "old\n" + strings.Repeat("x", 5000), "y\n", []string{strings.Repeat("x", 5000) + "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := source.NewSimulated("/sim/telemetry.log")
			sim.Append(tt.existing)

			out := &collector{}
			tailer := New(Config{StartAtEnd: true}, sim, nil, out, nil)
			drive(t, tailer)

			sim.Append(tt.appended)
			drive(t, tailer)

			if !equalLines(out.lines(), tt.expected) {
				t.Fatalf("expected %q, got %q", tt.expected, out.lines())
			}
		})
	}
}

func TestPartialLineIsHeldBack(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("{\"a\":1}\n{\"b\"")

	out := &collector{}
	tailer := New(Config{}, sim, nil, out, nil)
	drive(t, tailer)

	if !equalLines(out.lines(), []string{`{"a":1}`}) {
		t.Fatalf("only the complete line should be emitted, got %q", out.lines())
	}
	if tailer.Position().Offset != 8 {
		t.Fatalf("position should stop after the complete line, got %s", tailer.Position())
	}

	sim.Append(":2}\r\n")
	drive(t, tailer)

	if !equalLines(out.lines(), []string{`{"a":1}`, `{"b":2}`}) {
		t.Fatalf("partial line should be completed, got %q", out.lines())
	}
	if out.records[1].End.Offset != 8+9 {
		t.Fatalf("unexpected end %s", out.records[1].End)
	}
}

func TestRotationDrainsOldFileFirst(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("a\n")

	out := &collector{}
	tailer := New(Config{}, sim, nil, out, nil)
	drive(t, tailer)

	oldIdentity := out.records[0].End.Identity

	sim.Append("b\nc")
	sim.Rotate()
	sim.Append("d\n")
	drive(t, tailer)

	if !equalLines(out.lines(), []string{"a", "b", "c", "d"}) {
		t.Fatalf("unexpected order %q", out.lines())
	}

	tail := out.records[2].End
	if tail.Identity != oldIdentity || tail.Offset != 5 || tail.Generation != 0 {
		t.Fatalf("unterminated tail of the old file has wrong end %s", tail)
	}
	first := out.records[3].End
	if first.Identity == oldIdentity || first.Offset != 2 || first.Generation != 1 {
		t.Fatalf("first record of new file has wrong end %s", first)
	}
	if !tail.Less(first) {
		t.Fatalf("positions must increase across rotation")
	}
	if tailer.metrics.Rotations.Load() != 1 {
		t.Fatalf("expected one rotation, got %d", tailer.metrics.Rotations.Load())
	}
}

func TestTruncationRestartsAtZero(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("aaaa\n")

	out := &collector{}
	tailer := New(Config{}, sim, nil, out, nil)
	drive(t, tailer)

	sim.Truncate()
	sim.Append("b\n")
	drive(t, tailer)

	if !equalLines(out.lines(), []string{"aaaa", "b"}) {
		t.Fatalf("unexpected lines %q", out.lines())
	}
	end := out.records[1].End
	if end.Offset != 2 || end.Generation != 1 {
		t.Fatalf("unexpected end after truncation %s", end)
	}
	if tailer.metrics.Truncations.Load() != 1 {
		t.Fatalf("expected one truncation")
	}
}

func TestMissingFileIsPolled(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Remove()

	out := &collector{}
	tailer := New(Config{}, sim, nil, out, nil)
	drive(t, tailer)
	drive(t, tailer)

	if tailer.State() != Seeking {
		t.Fatalf("expected seeking, got %s", tailer.State())
	}
	if tailer.metrics.SourceMissing.Load() != 1 {
		t.Fatalf("missing source should be counted once, got %d", tailer.metrics.SourceMissing.Load())
	}

	sim.Create()
	sim.Append("x\n")
	drive(t, tailer)

	if !equalLines(out.lines(), []string{"x"}) {
		t.Fatalf("expected record once the file appears, got %q", out.lines())
	}
}

func TestOversizedLine(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("0123456789ABCDEF\nok\n")

	out := &collector{}
	tailer := New(Config{MaxLineBytes: 8, ChunkSize: 4}, sim, nil, out, nil)
	drive(t, tailer)

	if len(out.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out.records))
	}
	big := out.records[0]
	if !big.Oversized || string(big.Line) != "01234567" || big.End.Offset != 17 {
		t.Fatalf("unexpected oversized record %+v", big)
	}
	small := out.records[1]
	if small.Oversized || string(small.Line) != "ok" || small.End.Offset != 20 {
		t.Fatalf("unexpected record after oversized line %+v", small)
	}
}

func TestResumeReplaysExactlyTheRest(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("a\nbb\nccc\ndddd\n")

	full := &collector{}
	drive(t, New(Config{}, sim, nil, full, nil))
	if len(full.records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(full.records))
	}

	for k, record := range full.records {
		resume := record.End
		out := &collector{}
		drive(t, New(Config{StartAtEnd: true}, sim, nil, out, &resume))

		rest := full.records[k+1:]
		if len(out.records) != len(rest) {
			t.Fatalf("resume after %d: expected %d records, got %d", k, len(rest), len(out.records))
		}
		for i := range rest {
			if string(out.records[i].Line) != string(rest[i].Line) || out.records[i].End != rest[i].End {
				t.Fatalf("resume after %d: record %d differs", k, i)
			}
		}
	}
}

func TestResumeAgainstChangedSource(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("one\n")
	identity, _, _ := sim.Stat()

	tests := []struct {
		name   string
		resume checkpoint.Position
	}{
		{"different file", checkpoint.Position{Identity: checkpoint.Identity{Device: 1, Inode: 999}, Offset: 2, Generation: 3}},
		{"shrunk while down", checkpoint.Position{Identity: identity, Offset: 1000, Generation: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &collector{}
			drive(t, New(Config{}, sim, nil, out, &tt.resume))

			if !equalLines(out.lines(), []string{"one"}) {
				t.Fatalf("expected file read from the start, got %q", out.lines())
			}
			end := out.records[0].End
			if end.Generation != 4 || end.Offset != 4 || end.Identity != identity {
				t.Fatalf("unexpected end %s", end)
			}
		})
	}
}

func TestResetRereadsFromLastEmitted(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("a\nb")

	out := &collector{}
	tailer := New(Config{}, sim, nil, out, nil)
	drive(t, tailer)
	tailer.reset()

	sim.Append("\n")
	drive(t, tailer)

	if !equalLines(out.lines(), []string{"a", "b"}) {
		t.Fatalf("unexpected lines %q", out.lines())
	}
	if out.records[1].End.Offset != 4 {
		t.Fatalf("unexpected end %s", out.records[1].End)
	}
}

func TestOutboxFailureKeepsPosition(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	sim.Append("a\n")

	out := &collector{fail: errors.New("closed")}
	tailer := New(Config{}, sim, nil, out, nil)

	var err error
	for range 3 {
		if _, err = tailer.step(context.Background()); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatalf("expected outbox error to surface")
	}
	if tailer.Position().Offset != 0 {
		t.Fatalf("position should not advance past an unsent record")
	}
}

func TestRunFeedsQueue(t *testing.T) {
	sim := source.NewSimulated("/sim/telemetry.log")
	raw, err := queue.New[RawRecord]([]string{"test"}, 16, 1<<20, time.Minute)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tailer := New(Config{PollInterval: 20 * time.Millisecond}, sim, sim, raw, nil)

	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx) }()

	sim.Append("first\n")
	sim.Append("second\n")

	popCtx, popCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer popCancel()
	for _, want := range []string{"first", "second"} {
		record, ok := raw.Pop(popCtx)
		if !ok || string(record.Line) != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, record.Line, ok)
		}
	}
	// Read from another goroutine while Run owns the state machine
	if state := tailer.State(); state != Streaming {
		t.Fatalf("expected streaming while running, got %s", state)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run should end cleanly on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}
