package tailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"santasleigh/internal/checkpoint"
)

type position = checkpoint.Position

// Size accounted per record on top of the line bytes
const recordOverhead int = 48

// Reads everything currently in the open handle, emitting complete lines
func (tailer *Tailer) readAvailable(ctx context.Context) (progressed bool, err error) {
	size, err := tailer.handle.Size()
	if err != nil {
		err = fmt.Errorf("failed to size open source: %w", err)
		return
	}

	for tailer.readOff < size {
		want := min(int64(len(tailer.buf)), size-tailer.readOff)

		var n int
		n, err = tailer.handle.ReadAt(tailer.buf[:want], tailer.readOff)
		if err != nil && !errors.Is(err, io.EOF) {
			err = fmt.Errorf("failed to read source at offset %d: %w", tailer.readOff, err)
			return
		}
		err = nil
		if n == 0 {
			break
		}

		err = tailer.consume(ctx, tailer.buf[:n])
		if err != nil {
			return
		}
		tailer.readOff += int64(n)
		tailer.metrics.BytesRead.Add(uint64(n))
		progressed = true
	}
	return
}

// Splits a chunk that starts at readOff into lines
func (tailer *Tailer) consume(ctx context.Context, chunk []byte) (err error) {
	base := tailer.readOff

	for start := 0; start < len(chunk); {
		idx := bytes.IndexByte(chunk[start:], '\n')
		if idx < 0 {
			tailer.buffer(chunk[start:])
			return
		}

		tailer.buffer(chunk[start : start+idx])
		err = tailer.emit(ctx, base+int64(start+idx+1))
		if err != nil {
			return
		}
		start += idx + 1
	}
	return
}

// Holds bytes of an unterminated line, keeping at most MaxLineBytes
func (tailer *Tailer) buffer(data []byte) {
	if tailer.discarding {
		return
	}

	room := tailer.cfg.MaxLineBytes - len(tailer.partial)
	if len(data) > room {
		tailer.partial = append(tailer.partial, data[:room]...)
		tailer.discarding = true
		return
	}
	tailer.partial = append(tailer.partial, data...)
}

// Sends the buffered line as a record ending at endOffset
func (tailer *Tailer) emit(ctx context.Context, endOffset int64) (err error) {
	line := bytes.TrimSuffix(tailer.partial, []byte{'\r'})

	pos := tailer.Position()
	pos.Offset = endOffset

	record := RawRecord{
		Line:      append([]byte(nil), line...),
		End:       pos,
		Oversized: tailer.discarding,
	}

	err = tailer.out.PushBlocking(ctx, record, len(record.Line)+recordOverhead)
	if err != nil {
		return
	}

	if record.Oversized {
		tailer.metrics.Oversized.Add(1)
	}
	tailer.metrics.LinesRead.Add(1)
	tailer.setPosition(pos)
	tailer.partial = tailer.partial[:0]
	tailer.discarding = false
	return
}
