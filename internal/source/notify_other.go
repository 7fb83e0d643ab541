//go:build !linux

package source

import "context"

// Interval polling only; the tailer's poll timer does the work
type pollNotifier struct{}

func NewNotifier(ctx context.Context, path string) (notifier Notifier, err error) {
	notifier = pollNotifier{}
	return
}

func (pollNotifier) Events() <-chan struct{} {
	return nil
}

func (pollNotifier) Close() error {
	return nil
}
