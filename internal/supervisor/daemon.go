// Wires tailer, batcher and uploader into a running daemon and stops them in drain order
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"santasleigh/internal/batcher"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/externalio/server"
	"santasleigh/internal/global"
	"santasleigh/internal/lifecycle"
	"santasleigh/internal/logctx"
	"santasleigh/internal/queue"
	"santasleigh/internal/source"
	"santasleigh/internal/spill"
	"santasleigh/internal/tailer"
	"santasleigh/internal/uploader"
	"time"
)

// Create new daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	new = &Daemon{
		cfg:     cfg,
		stopped: make(chan struct{}),
	}
	return
}

// Starts pipeline workers in background. On error everything already started is shut down.
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = logctx.WithLogger(daemon.ctx, logctx.GetLogger(globalCtx))
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSSupervisor)
	ctx := daemon.ctx

	defer func() {
		if err != nil {
			daemon.Shutdown()
		}
	}()

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")

	daemon.cfg.setDefaults()
	cfg := daemon.cfg
	err = cfg.validate()
	if err != nil {
		return
	}
	global.LoadHostname()

	// Storage checks
	daemon.checkpoint = checkpoint.New(cfg.StateFilePath, cfg.SourcePath)
	err = daemon.checkpoint.Check()
	if err != nil {
		return
	}

	err = source.Probe(cfg.SourcePath)
	if err != nil {
		err = fmt.Errorf("cannot read telemetry source: %w", err)
		return
	}
	if daemon.opener == nil {
		daemon.opener = source.NewFileOpener(cfg.SourcePath)
	}
	_, _, statErr := daemon.opener.Stat()
	if errors.Is(statErr, os.ErrNotExist) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"telemetry source %s does not exist yet, waiting for it to appear\n", cfg.SourcePath)
	}

	daemon.sink, err = newSink(ctx, cfg)
	if err != nil {
		return
	}

	if cfg.Upload.Policy == uploader.PolicySpill {
		daemon.spill, err = spill.Open(cfg.SpillDir, cfg.SpillMaxBytes, cfg.SpillKey)
		if err != nil {
			return
		}
	}

	resume, err := daemon.loadCheckpoint(ctx)
	if err != nil {
		return
	}

	// Inter-stage queues
	daemon.rawQueue, err = queue.New[tailer.RawRecord]([]string{global.NSTailer},
		global.DefaultRawQueueLines, cfg.PendingBytes, cfg.StallWarning)
	if err != nil {
		return
	}
	daemon.batchQueue, err = queue.New[*batcher.Batch]([]string{global.NSBatcher},
		cfg.PendingBatches, cfg.PendingBytes, cfg.StallWarning)
	if err != nil {
		return
	}

	// Stage 3 - Uploader
	daemon.Uploader, err = uploader.New(cfg.Upload, daemon.sink, daemon.batchQueue, daemon.checkpoint, daemon.spill)
	if err != nil {
		return
	}
	var uploaderCtx context.Context
	uploaderCtx, daemon.uploaderCancel = context.WithCancel(ctx)
	daemon.uploaderDone = make(chan struct{})
	go daemon.supervise(uploaderCtx, "uploader", daemon.uploaderDone, daemon.Uploader.Run)

	// Stage 2 - Batcher
	daemon.Batcher = batcher.New(cfg.Batch)
	var batcherCtx context.Context
	batcherCtx, daemon.batcherCancel = context.WithCancel(ctx)
	daemon.batcherDone = make(chan struct{})
	go daemon.supervise(batcherCtx, "batcher", daemon.batcherDone, func(ctx context.Context) error {
		return daemon.Batcher.Run(ctx, daemon.rawQueue, daemon.batchQueue)
	})

	// Stage 1 - Tailer
	var tailerCtx context.Context
	tailerCtx, daemon.tailerCancel = context.WithCancel(ctx)
	if daemon.notifier == nil {
		daemon.notifier, err = source.NewNotifier(tailerCtx, cfg.SourcePath)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"change notifications unavailable, polling every %s: %v\n", cfg.PollInterval, err)
			daemon.notifier = nil
			err = nil
		}
	}
	daemon.Tailer = tailer.New(tailer.Config{
		StartAtEnd:   cfg.StartAtEnd,
		PollInterval: cfg.PollInterval,
		MaxLineBytes: cfg.MaxLineBytes,
		ChunkSize:    global.ReadChunkSize,
	}, daemon.opener, daemon.notifier, daemon.rawQueue, resume)
	daemon.tailerDone = make(chan struct{})
	go daemon.supervise(tailerCtx, "tailer", daemon.tailerDone, daemon.Tailer.Run)

	// Metrics Collector
	sources := []Collector{daemon.Tailer, daemon.rawQueue, daemon.Batcher, daemon.batchQueue,
		daemon.Uploader, daemon.checkpoint, daemon}
	if daemon.spill != nil {
		sources = append(sources, daemon.spill)
	}
	daemon.Gatherer = NewGatherer(cfg.MetricCollectionInterval, cfg.MetricMaxAge, sources...)
	daemon.wg.Go(func() {
		daemon.Gatherer.Run(ctx)
	})

	if cfg.MetricQueryServer {
		daemon.queryServer = server.SetupListener(ctx, cfg.MetricQueryAddress, daemon.Gatherer.Registry)
		daemon.wg.Go(func() {
			server.Start(ctx, daemon.queryServer)
		})
	}

	err = lifecycle.NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "systemd notify failed: %v\n", err)
		err = nil
	}

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Startup complete: forwarding %s to %s\n", cfg.SourcePath, daemon.sink.Name())
	return
}

// A corrupt checkpoint is treated as absent so the start policy applies
func (daemon *Daemon) loadCheckpoint(ctx context.Context) (resume *checkpoint.Position, err error) {
	pos, found, err := daemon.checkpoint.Load()
	if errors.Is(err, checkpoint.ErrCorrupt) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"ignoring unreadable checkpoint %s: %v\n", daemon.checkpoint.Path(), err)
		err = nil
		found = false
	}
	if err != nil {
		return
	}

	if !found {
		startAt := "end"
		if !daemon.cfg.StartAtEnd {
			startAt = "beginning"
		}
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
			"no checkpoint found, starting at the %s of %s\n", startAt, daemon.cfg.SourcePath)
		return
	}

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "resuming from checkpoint %s\n", pos)
	resume = &pos
	return
}

// Blocks until shutdown has completed
func (daemon *Daemon) Run() {
	<-daemon.stopped
}

// Gracefully stops the pipeline: tailer first, then drain batcher and uploader
func (daemon *Daemon) Shutdown() {
	daemon.shutdownOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	defer close(daemon.stopped)
	if daemon.ctx == nil {
		return
	}
	ctx := daemon.ctx

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Daemon shutdown started...\n")
	_ = lifecycle.NotifyStatus(ctx, "draining")

	grace := daemon.cfg.ShutdownGrace
	if grace <= 0 {
		grace = global.DefaultShutdownGrace
	}
	graceCtx, cancelGrace := context.WithTimeout(context.Background(), grace)
	defer cancelGrace()

	// Stop reading
	if daemon.tailerDone != nil {
		daemon.tailerCancel()
		<-daemon.tailerDone
	}
	if daemon.notifier != nil {
		daemon.notifier.Close()
	}

	// Batcher drains the raw queue, flushes its window and closes the batch queue
	if daemon.rawQueue != nil {
		daemon.rawQueue.Close()
	}
	if daemon.batcherDone != nil {
		select {
		case <-daemon.batcherDone:
		case <-graceCtx.Done():
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"batcher did not drain within %s, stopping it\n", grace)
			daemon.batcherCancel()
			<-daemon.batcherDone
		}
	} else if daemon.batchQueue != nil {
		daemon.batchQueue.Close()
	}

	// Uploader finishes what is queued, bounded by the grace period
	if daemon.uploaderDone != nil {
		select {
		case <-daemon.uploaderDone:
		case <-graceCtx.Done():
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"uploader did not finish within %s, abandoning in-flight deliveries (they resend after restart)\n", grace)
			daemon.uploaderCancel()
			<-daemon.uploaderDone
		}
	}

	// Final save of the committed watermark
	if daemon.Uploader != nil {
		if pos, ok := daemon.Uploader.Committed(); ok {
			err := daemon.checkpoint.Save(pos)
			if err != nil && !errors.Is(err, checkpoint.ErrRegression) {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "final checkpoint save failed: %v\n", err)
			} else {
				logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "final checkpoint at %s\n", pos)
			}
		}
	}

	if daemon.sink != nil {
		err := daemon.sink.Close()
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "closing %s: %v\n", daemon.sink.Name(), err)
		}
	}

	if daemon.queryServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		err := daemon.queryServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "metric query server shutdown: %v\n", err)
		}
	}

	// Stop the metric gatherer and anything left
	daemon.cancel()
	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "metric gatherer did not stop in time\n")
	}

	_ = lifecycle.NotifyStopping(ctx)
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Daemon shutdown completed successfully\n")
}
