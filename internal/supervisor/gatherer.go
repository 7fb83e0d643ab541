package supervisor

import (
	"context"
	"runtime/debug"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/metrics"
	"time"
)

func NewGatherer(interval, retention time.Duration, sources ...Collector) (new *Gatherer) {
	new = &Gatherer{
		Registry:  metrics.New(),
		Interval:  interval,
		Retention: retention,
		Sources:   sources,
	}
	return
}

func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)

	// Tracking last interval run time
	lastRun := time.Now()

	ticker := time.NewTicker(gatherer.Interval / 2) // Use polling interval half of desired record interval
	defer ticker.Stop()

	// Counter to track how many ticks have passed (for retention)
	var tickCount int

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastRun) >= gatherer.Interval {
				lastRun = now
				gatherer.collect(ctx, now)
			}

			tickCount++
			if tickCount >= 30 {
				gatherer.Registry.Prune(now, gatherer.Retention)
				tickCount = 0
			}
		}
	}
}

// Reads every source into a new time slice and logs a one line summary
func (gatherer *Gatherer) collect(ctx context.Context, now time.Time) {
	// Record panics and continue on next interval
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collector: %v\n%s", fatalError, stack)
		}
	}()

	timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)

	var collection []metrics.Metric
	for _, source := range gatherer.Sources {
		if source == nil {
			continue
		}
		batch := source.CollectMetrics(gatherer.Interval)
		gatherer.Registry.Add(timeSlice, batch)
		collection = append(collection, batch...)
	}

	summary := metrics.Summarize(collection)
	if summary == "" {
		summary = "idle"
	}
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "last %s: %s\n", gatherer.Interval, summary)
}
