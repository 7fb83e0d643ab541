//go:build linux

package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"

	"golang.org/x/sys/unix"
)

const watchMask uint32 = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_ATTRIB |
	unix.IN_CREATE | unix.IN_DELETE | unix.IN_MOVED_FROM | unix.IN_MOVED_TO

// Watches the source's directory so replacement and deletion are seen as well as writes
type inotifyNotifier struct {
	fd     int
	events chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotifier(ctx context.Context, path string) (notifier Notifier, err error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		err = fmt.Errorf("failed to initialize inotify: %w", err)
		return
	}

	dir := filepath.Dir(path)
	_, err = unix.InotifyAddWatch(fd, dir, watchMask)
	if err != nil {
		unix.Close(fd)
		err = fmt.Errorf("failed to watch directory '%s': %w", dir, err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	watcher := &inotifyNotifier{
		fd:     fd,
		events: make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go watcher.run(ctx, filepath.Base(path))

	notifier = watcher
	return
}

func (watcher *inotifyNotifier) Events() <-chan struct{} {
	return watcher.events
}

func (watcher *inotifyNotifier) Close() error {
	watcher.cancel()
	<-watcher.done
	return nil
}

func (watcher *inotifyNotifier) run(ctx context.Context, name string) {
	defer close(watcher.done)
	defer unix.Close(watcher.fd)

	buf := make([]byte, unix.SizeofInotifyEvent*64+unix.PathMax)
	pollFds := []unix.PollFd{{Fd: int32(watcher.fd), Events: unix.POLLIN}}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Bounded wait so cancellation is noticed
		ready, err := unix.Poll(pollFds, 500)
		if err == unix.EINTR || ready == 0 {
			continue
		}
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"inotify poll failed, falling back to interval polling: %v\n", err)
			return
		}

		n, err := unix.Read(watcher.fd, buf)
		if err == unix.EAGAIN || err == unix.EINTR {
			continue
		}
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"inotify read failed, falling back to interval polling: %v\n", err)
			return
		}

		if watcher.matches(ctx, buf[:n], name) {
			select {
			case watcher.events <- struct{}{}:
			default:
			}
		}
	}
}

// Reports whether any event in the buffer concerns the watched file name
func (watcher *inotifyNotifier) matches(ctx context.Context, buf []byte, name string) (relevant bool) {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		var event unix.InotifyEvent
		err := binary.Read(bytes.NewReader(buf[offset:offset+unix.SizeofInotifyEvent]), binary.NativeEndian, &event)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityDebug, global.WarnLog, "failed to decode inotify event: %v\n", err)
			return
		}

		nameStart := offset + unix.SizeofInotifyEvent
		nameEnd := min(nameStart+int(event.Len), len(buf))
		eventName := string(bytes.TrimRight(buf[nameStart:nameEnd], "\x00"))

		if eventName == name || event.Mask&unix.IN_Q_OVERFLOW != 0 {
			relevant = true
		}
		offset = nameEnd
	}
	return
}
