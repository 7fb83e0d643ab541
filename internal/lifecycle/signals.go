package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"syscall"
)

type DaemonLike interface {
	Shutdown()
}

// Waits for a termination signal (or ctx end) and shuts the daemon down.
// SIGHUP only logs; configuration is read once at startup.
func SignalHandler(ctx context.Context, daemonManager DaemonLike) {
	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			daemonManager.Shutdown()
			return
		case sig := <-sigChan:
			logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", sig)

			if sig == syscall.SIGHUP {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
					"reload is not supported, restart the service to apply configuration changes\n")
				continue
			}

			daemonManager.Shutdown()
			logger := logctx.GetLogger(ctx)
			if logger != nil {
				logger.Wake()
			}
			return
		}
	}
}
