package tailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/source"
	"time"
)

// Tails until ctx ends (returns nil) or an unexpected failure occurs (returns error).
// Calling Run again after an error resumes from the last emitted record.
func (tailer *Tailer) Run(ctx context.Context) (err error) {
	ctx = logctx.AppendCtxTag(ctx, global.NSTailer)
	defer tailer.reset()

	for {
		if ctx.Err() != nil {
			return nil
		}

		var progressed bool
		progressed, err = tailer.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return
		}
		if progressed {
			continue
		}

		if tailer.wait(ctx) != nil {
			return nil
		}
	}
}

// Advances the state machine once. progressed is false when there was nothing to do.
func (tailer *Tailer) step(ctx context.Context) (progressed bool, err error) {
	switch tailer.state {
	case Seeking:
		progressed, err = tailer.seek(ctx)
	case Streaming:
		progressed, err = tailer.readAvailable(ctx)
		if err != nil {
			return
		}

		var kind rotationKind
		kind, err = tailer.detectRotation(ctx)
		if err != nil {
			return
		}
		if kind != noRotation {
			tailer.rotation = kind
			tailer.setState(RotationDetected)
			progressed = true
		}
	case RotationDetected:
		err = tailer.handleRotation(ctx)
		progressed = true
	}
	return
}

// Blocks until the notifier fires, the poll interval elapses, or ctx ends
func (tailer *Tailer) wait(ctx context.Context) (err error) {
	var events <-chan struct{}
	if tailer.notifier != nil {
		events = tailer.notifier.Events()
	}

	timer := time.NewTimer(tailer.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-events:
	case <-timer.C:
	}
	return
}

// Releases the handle so the next Run starts from Seeking at the last emitted position
func (tailer *Tailer) reset() {
	if tailer.handle != nil {
		tailer.handle.Close()
		tailer.handle = nil
	}
	tailer.setState(Seeking)
	tailer.partial = nil
	tailer.discarding = false
	tailer.readOff = tailer.Position().Offset
}

// Opens the path and decides where reading starts
func (tailer *Tailer) seek(ctx context.Context) (opened bool, err error) {
	handle, err := tailer.opener.Open()
	if errors.Is(err, os.ErrNotExist) {
		err = nil
		if !tailer.missing {
			tailer.missing = true
			tailer.metrics.SourceMissing.Add(1)
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"source '%s' does not exist, waiting for it to appear\n", tailer.opener.Path())
		}
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to open source '%s': %w", tailer.opener.Path(), err)
		return
	}

	size, err := handle.Size()
	if err != nil {
		handle.Close()
		err = fmt.Errorf("failed to size source: %w", err)
		return
	}

	if tailer.missing {
		tailer.missing = false
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
			"source '%s' is available again\n", tailer.opener.Path())
	}

	identity := handle.Identity()
	pos := tailer.Position()

	switch {
	case !tailer.seeded && tailer.resume == nil:
		pos.Identity = identity
		pos.Offset = 0
		if tailer.cfg.StartAtEnd {
			pos.Offset, err = lineStartBefore(handle, size, tailer.cfg.MaxLineBytes)
			if err != nil {
				handle.Close()
				err = fmt.Errorf("failed to find the last line boundary: %w", err)
				return
			}
		}
	case !tailer.seeded:
		pos = *tailer.resume
		fallthrough
	default:
		if pos.Identity != identity {
			// Replaced while we were not reading it
			pos.Identity = identity
			pos.Offset = 0
			pos.Generation++
			tailer.metrics.Rotations.Add(1)
		} else if pos.Offset > size {
			pos.Offset = 0
			pos.Generation++
			tailer.metrics.Truncations.Add(1)
		}
	}

	tailer.handle = handle
	tailer.seeded = true
	tailer.setPosition(pos)
	tailer.readOff = pos.Offset
	tailer.partial = tailer.partial[:0]
	tailer.discarding = false
	tailer.setState(Streaming)
	opened = true

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"streaming source '%s' from %s (size %d)\n", tailer.opener.Path(), pos, size)
	return
}

// Checks whether the path still refers to the open file and whether it shrank
func (tailer *Tailer) detectRotation(ctx context.Context) (kind rotationKind, err error) {
	size, err := tailer.handle.Size()
	if err != nil {
		err = fmt.Errorf("failed to size open source: %w", err)
		return
	}
	if size < tailer.readOff {
		kind = truncated
		return
	}

	identity, _, err := tailer.opener.Stat()
	if errors.Is(err, os.ErrNotExist) {
		// Renamed or deleted with no replacement yet, keep draining the open handle
		err = nil
		if !tailer.missing {
			tailer.missing = true
			tailer.metrics.SourceMissing.Add(1)
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"source path '%s' disappeared, still reading the open file\n", tailer.opener.Path())
		}
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to stat source path: %w", err)
		return
	}
	tailer.missing = false

	if identity != tailer.handle.Identity() {
		kind = replaced
	}
	return
}

func (tailer *Tailer) handleRotation(ctx context.Context) (err error) {
	switch tailer.rotation {
	case truncated:
		pos := tailer.Position()
		pos.Offset = 0
		pos.Generation++
		tailer.setPosition(pos)
		tailer.readOff = 0
		tailer.partial = tailer.partial[:0]
		tailer.discarding = false
		tailer.metrics.Truncations.Add(1)
		tailer.setState(Streaming)

		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
			"source truncated in place, restarting at offset 0 (generation %d)\n", pos.Generation)
	case replaced:
		// Everything the old file holds goes out before the new file is touched
		for {
			var progressed bool
			progressed, err = tailer.readAvailable(ctx)
			if err != nil {
				return
			}
			if !progressed {
				break
			}
		}
		if len(tailer.partial) > 0 || tailer.discarding {
			err = tailer.emit(ctx, tailer.readOff)
			if err != nil {
				return
			}
		}

		// seek counts the rotation once it sees the new identity
		tailer.handle.Close()
		tailer.handle = nil
		tailer.setState(Seeking)

		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
			"source rotated, drained previous file up to %s\n", tailer.Position())
	}
	tailer.rotation = noRotation
	return
}

func (tailer *Tailer) setPosition(pos position) {
	tailer.mu.Lock()
	tailer.pos = pos
	tailer.mu.Unlock()
}

// Offset just past the last newline before size, so a line still being written is read whole.
// Looks back at most maxLine bytes; a longer unterminated line starts at size.
func lineStartBefore(handle source.Handle, size int64, maxLine int) (offset int64, err error) {
	const window = 4096

	buf := make([]byte, window)
	end := size
	floor := max(size-int64(maxLine), 0)
	for end > floor {
		start := max(end-window, floor)
		chunk := buf[:end-start]
		n, readErr := handle.ReadAt(chunk, start)
		if readErr != nil && !(errors.Is(readErr, io.EOF) && n == len(chunk)) {
			err = readErr
			return
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			offset = start + int64(i) + 1
			return
		}
		end = start
	}
	if floor == 0 {
		return
	}
	offset = size
	return
}
