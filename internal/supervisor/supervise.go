package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/metrics"
	"time"
)

// Runs fn until it returns nil or ctx ends. Errors and panics restart it in place
// after a backoff that doubles from WorkerRestartMin up to WorkerRestartMax.
func (daemon *Daemon) supervise(ctx context.Context, name string, done chan<- struct{}, fn func(context.Context) error) {
	defer close(done)

	delay := global.WorkerRestartMin
	for {
		started := time.Now()
		err := runGuarded(ctx, fn)
		if err == nil || ctx.Err() != nil {
			return
		}

		// A worker that ran for a while earns a fresh backoff
		if time.Since(started) > global.WorkerRestartMax {
			delay = global.WorkerRestartMin
		}

		daemon.restarts.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"%s stopped unexpectedly: %v (restarting in %s)\n", name, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, global.WorkerRestartMax)
	}
}

func runGuarded(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			err = fmt.Errorf("panic: %v\n%s", fatalError, debug.Stack())
		}
	}()
	err = fn(ctx)
	return
}

func (daemon *Daemon) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	collection = []metrics.Metric{
		metrics.NewCounter([]string{global.NSSupervisor}, "worker_restarts",
			"Workers restarted after an error or panic", daemon.restarts.Swap(0), interval, time.Now()),
	}
	return
}
