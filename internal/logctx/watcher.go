package logctx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"santasleigh/internal/global"
	"strings"
	"time"
)

const (
	dedupWindow      time.Duration = 5 * time.Second
	dedupMinRepeats  int           = 10
	suppressCooldown time.Duration = 1 * time.Minute
)

type dedupState struct {
	lastMsg          string
	repeatCount      int
	lastSuppressTime time.Time
}

// Hold main thread exit until logger is finished its work
func (logger *Logger) Wait() {
	logger.wg.Wait()

	logger.mutex.Lock()
	closers := logger.closers
	logger.closers = nil
	logger.mutex.Unlock()
	for _, closer := range closers {
		_ = closer.Close()
	}
}

// Wake signals/broadcasts to any goroutines waiting on the condition variable
func (logger *Logger) Wake() {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.cond.Broadcast()
}

// Opens (append) a log file as an additional output. Closed by Wait.
func (logger *Logger) OpenFileOutput(path string) (output io.Writer, err error) {
	err = os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		err = fmt.Errorf("failed to open log file '%s': %w", path, err)
		return
	}

	logger.mutex.Lock()
	logger.closers = append(logger.closers, file)
	logger.mutex.Unlock()

	output = file
	return
}

// Starts a go routine that reads events and writes formatted output to every output.
// Stops when logger.Done is closed and the queue is empty.
func StartWatcher(logger *Logger, outputs ...io.Writer) {
	output := io.MultiWriter(outputs...)
	logger.wg.Add(1)

	go func() {
		defer logger.wg.Done()

		var dedup dedupState
		for {
			event, ok := logger.next()
			if !ok {
				return
			}

			if dedup.suppress(event, output) {
				continue
			}
			fmt.Fprintf(output, "%s", event.Format())
		}
	}()
}

// Blocks for next event. Returns false once done and drained.
func (logger *Logger) next() (event Event, ok bool) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()

	for len(logger.queue) == 0 {
		select {
		case <-logger.Done:
			return
		default:
			logger.cond.Wait()
		}
	}

	event = logger.queue[0]
	logger.queue = logger.queue[1:]
	ok = true
	return
}

// Tracks highly repetitive messages. Returns true if event should not be printed.
func (dedup *dedupState) suppress(event Event, output io.Writer) (skip bool) {
	now := time.Now()

	if event.Message == "" || event.Message != dedup.lastMsg || now.Sub(event.Timestamp) > dedupWindow {
		dedup.lastMsg = event.Message
		dedup.repeatCount = 1
		return
	}

	dedup.repeatCount++
	if dedup.repeatCount >= dedupMinRepeats && now.Sub(dedup.lastSuppressTime) >= suppressCooldown {
		fmt.Fprintf(output, "[%s] [%s] [%s] Suppressed %d repeated messages: %s",
			padTimestamp(event.Timestamp),
			strings.Join(event.Tags, "/"),
			global.InfoLog,
			dedup.repeatCount,
			dedup.lastMsg)
		dedup.lastSuppressTime = now
		dedup.repeatCount = 0
	}
	skip = true
	return
}
