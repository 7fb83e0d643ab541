package batcher

import (
	"context"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/parser"
)

type position = checkpoint.Position

// Batch accounting overhead on top of the raw bytes
const batchOverhead int = 256

// Pops raw records until the input closes or ctx ends, then flushes the open
// window and closes out.
func (batcher *Batcher) Run(ctx context.Context, in Input, out Output) (err error) {
	ctx = logctx.AppendCtxTag(ctx, global.NSBatcher)

	for {
		popCtx, cancel := ctx, context.CancelFunc(func() {})
		if deadline, ok := batcher.Deadline(); ok {
			popCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		record, ok := in.Pop(popCtx)
		cancel()

		if ok {
			result := parser.Parse(record)
			batcher.observe(ctx, result)

			sealed := batcher.Add(result, batcher.now())
			if sealed != nil {
				err = batcher.send(ctx, out, sealed)
				if err != nil {
					break
				}
			}
			continue
		}

		if ctx.Err() != nil {
			break
		}

		now := batcher.now()
		if popCtx.Err() != nil {
			// Window deadline
			if batcher.Due(now) {
				err = batcher.send(ctx, out, batcher.Flush(now))
				if err != nil {
					break
				}
			}
			continue
		}

		// Input closed and drained
		break
	}

	batcher.shutdown(ctx, out)
	if ctx.Err() != nil {
		err = nil
	}
	return
}

func (batcher *Batcher) shutdown(ctx context.Context, out Output) {
	defer out.Close()

	sealed := batcher.Flush(batcher.now())
	if sealed == nil {
		return
	}

	flushCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
	}

	err := batcher.send(flushCtx, out, sealed)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"could not hand off final batch %d (%d events) before stopping: %v\n", sealed.Seq, len(sealed.Events), err)
		return
	}
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"flushed final batch %d with %d events\n", sealed.Seq, len(sealed.Events))
}

func (batcher *Batcher) send(ctx context.Context, out Output, sealed *Batch) (err error) {
	err = out.PushBlocking(ctx, sealed, sealed.Bytes+batchOverhead)
	if err != nil {
		return
	}
	logctx.LogEvent(ctx, global.VerbosityDebug, global.InfoLog,
		"sealed batch %d: %d events, %d bytes, end %s\n", sealed.Seq, len(sealed.Events), sealed.Bytes, sealed.End)
	return
}

func (batcher *Batcher) observe(ctx context.Context, result parser.Result) {
	if result.Event != nil {
		batcher.metrics.EventsParsed.Add(1)
		return
	}

	batcher.metrics.failuresMu.Lock()
	batcher.metrics.Failures[result.Failure.Reason]++
	batcher.metrics.failuresMu.Unlock()

	logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
		"skipping malformed line ending at %s (%s): %q\n", result.Failure.Source, result.Failure.Reason, result.Failure.Excerpt)
}
