package uploader

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"santasleigh/internal/atomics"
	"santasleigh/internal/batcher"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/framing"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/spill"
	"strconv"
	"sync"
	"time"
)

// Longest wait for other workers to finish before an idle replay is skipped
const idleSettle time.Duration = 1 * time.Second

// Runs delivery workers until the input is closed and drained, or ctx ends.
// Batches interrupted by ctx are not completed and will be read again after restart.
func (uploader *Uploader) Run(ctx context.Context) (err error) {
	ctx = logctx.AppendCtxTag(ctx, global.NSUploader)

	var wg sync.WaitGroup
	for id := range uploader.cfg.Concurrency {
		wg.Go(func() {
			uploader.keepWorking(logctx.AppendCtxTag(ctx, "Worker"+strconv.Itoa(id)), id == 0)
		})
	}
	wg.Wait()
	return
}

// Restarts a worker that panicked. The batch it held is not completed and is read again after restart.
func (uploader *Uploader) keepWorking(ctx context.Context, replays bool) {
	for {
		finished := uploader.guardedWorker(ctx, replays)
		if finished || ctx.Err() != nil {
			return
		}
		uploader.metrics.WorkerPanics.Add(1)
		if uploader.sleep(ctx, global.WorkerRestartMin) != nil {
			return
		}
	}
}

func (uploader *Uploader) guardedWorker(ctx context.Context, replays bool) (finished bool) {
	defer func() {
		if fault := recover(); fault != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"delivery worker panicked, restarting: %v\n%s\n", fault, debug.Stack())
		}
	}()
	uploader.worker(ctx, replays)
	finished = true
	return
}

// A panicking sink is a transient failure of that attempt
func (uploader *Uploader) callSink(ctx context.Context, payload *framing.Payload) (err error) {
	defer func() {
		if fault := recover(); fault != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"%s panicked during delivery: %v\n%s\n", uploader.sink.Name(), fault, debug.Stack())
			err = fmt.Errorf("%s panicked: %w: %v", uploader.sink.Name(), Transient, fault)
		}
	}()
	err = uploader.sink.Deliver(ctx, payload)
	return
}

// Position of the highest contiguous acknowledged batch
func (uploader *Uploader) Committed() (pos checkpoint.Position, ok bool) {
	pos, ok = uploader.pending.Committed()
	return
}

func (uploader *Uploader) worker(ctx context.Context, replays bool) {
	for {
		popCtx, cancel := ctx, context.CancelFunc(func() {})
		if replays && uploader.spill != nil {
			popCtx, cancel = context.WithTimeout(ctx, uploader.cfg.ReplayInterval)
		}
		batch, ok := uploader.in.Pop(popCtx)
		cancel()

		if ok {
			uploader.handle(ctx, batch)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if popCtx.Err() != nil {
			// Idle, but other workers may still be delivering
			idle, _ := atomics.WaitUntilZero(ctx, &uploader.metrics.InFlight, idleSettle)
			if idle {
				uploader.replay(ctx)
			}
			continue
		}
		return
	}
}

func (uploader *Uploader) handle(ctx context.Context, batch *batcher.Batch) {
	uploader.metrics.InFlight.Add(1)
	defer uploader.metrics.InFlight.Add(-1)

	if len(batch.Events) == 0 {
		// Only malformed lines, nothing to send
		uploader.complete(ctx, batch)
		return
	}

	attempt := &DeliveryAttempt{
		Batch:    batch,
		FirstTry: uploader.now(),
		State:    StatePending,
	}

	payload, err := framing.Frame(batch, uploader.cfg.Encoding)
	if err != nil {
		attempt.LastErr = err
		attempt.State = StateRejected
		attempt.class = classRejected
		uploader.fail(ctx, attempt)
		return
	}
	attempt.Payload = payload

	uploader.deliver(ctx, attempt)

	switch attempt.State {
	case StateAcked:
		uploader.metrics.Acked.Add(1)
		logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
			"batch %d (%s) acknowledged after %d attempt(s): %d events\n",
			batch.Seq, batch.ID, attempt.Attempt, len(batch.Events))
		uploader.complete(ctx, batch)
	case StateRejected, StateExhausted:
		uploader.fail(ctx, attempt)
	default:
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"abandoning batch %d mid-delivery: it will be read again after restart\n", batch.Seq)
	}
}

// Calls the sink until it acks, refuses, or the retry ceiling is reached.
// Leaves State pending or backoff when ctx ended first.
func (uploader *Uploader) deliver(ctx context.Context, attempt *DeliveryAttempt) {
	for {
		attempt.Attempt++
		attempt.State = StatePending

		err := uploader.callSink(ctx, attempt.Payload)
		if err == nil {
			attempt.State = StateAcked
			attempt.LastErr = nil
			return
		}
		attempt.LastErr = err

		if ctx.Err() != nil {
			return
		}

		attempt.class = classify(err)
		if attempt.class != classTransient {
			attempt.State = StateRejected
			return
		}

		now := uploader.now()
		if attempt.Attempt >= uploader.cfg.MaxAttempts || now.Sub(attempt.FirstTry) >= uploader.cfg.MaxElapsed {
			attempt.State = StateExhausted
			return
		}

		delay := uploader.jitter(uploader.backoffCeiling(attempt.Attempt))
		attempt.NextRetry = now.Add(delay)
		attempt.State = StateBackoff
		uploader.metrics.Retries.Add(1)

		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"delivery of batch %d to %s failed (attempt %d/%d), retrying in %s: %v\n",
			attempt.Batch.Seq, uploader.sink.Name(), attempt.Attempt, uploader.cfg.MaxAttempts, delay, err)

		if uploader.sleep(ctx, delay) != nil {
			return
		}
	}
}

// Applies the failure policy. The batch completes only once the policy has run to the end.
func (uploader *Uploader) fail(ctx context.Context, attempt *DeliveryAttempt) {
	batch := attempt.Batch

	reason := spill.ReasonExhausted
	switch attempt.class {
	case classRejected:
		reason = spill.ReasonRejected
		uploader.metrics.Rejected.Add(1)
	case classAuth:
		reason = spill.ReasonAuth
	}

	if uploader.cfg.Policy == PolicyDrop || attempt.Payload == nil {
		uploader.metrics.Dropped.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"dropping batch %d (%s, %d events) after %d attempt(s), reason %s: %v\n",
			batch.Seq, batch.ID, len(batch.Events), attempt.Attempt, reason, attempt.LastErr)
		uploader.complete(ctx, batch)
		return
	}

	// Spill write errors are retried until they clear. Holding the batch here backpressures the batcher.
	record := spill.NewRecord(attempt.Payload, reason, attempt.LastErr)
	var name string
	for tries := 1; ; tries++ {
		var err error
		name, err = uploader.spill.Write(ctx, record)
		if err == nil {
			break
		}
		uploader.metrics.SpillFailures.Add(1)

		delay := uploader.jitter(uploader.backoffCeiling(tries))
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"failed to spill batch %d (%s), retrying in %s: %v\n", batch.Seq, batch.ID, delay, err)
		if uploader.sleep(ctx, delay) != nil {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"abandoning unspilled batch %d: it will be read again after restart\n", batch.Seq)
			return
		}
	}

	uploader.metrics.Spilled.Add(1)
	logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
		"spilled batch %d (%d events) to %s after %d attempt(s), reason %s: %v\n",
		batch.Seq, len(batch.Events), name, attempt.Attempt, reason, attempt.LastErr)
	uploader.complete(ctx, batch)
}

// Marks the batch finished and persists the watermark when it moves
func (uploader *Uploader) complete(ctx context.Context, batch *batcher.Batch) {
	commit, advanced := uploader.pending.Complete(batch.Seq, batch.End)
	if !advanced {
		return
	}

	err := uploader.committer.Save(commit)
	if err != nil && !errors.Is(err, checkpoint.ErrRegression) {
		uploader.metrics.CheckpointFailures.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"failed to save checkpoint %s: %v\n", commit, err)
		return
	}
	logctx.LogEvent(ctx, global.VerbosityDebug, global.InfoLog, "checkpoint advanced to %s\n", commit)
}
