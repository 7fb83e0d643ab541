//go:build linux

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInotifyNotifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.ndjson")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	notifier, err := NewNotifier(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to create notifier: %v", err)
	}
	defer notifier.Close()

	tests := []struct {
		name   string
		action func() error
	}{
		{"append", func() error {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = f.WriteString("{}\n")
			return err
		}},
		{"rename away", func() error { return os.Rename(path, path+".1") }},
		{"recreate", func() error { return os.WriteFile(path, []byte("{}\n"), 0600) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Drain stale wakeups
			select {
			case <-notifier.Events():
			default:
			}

			if err := tt.action(); err != nil {
				t.Fatalf("action failed: %v", err)
			}

			select {
			case <-notifier.Events():
			case <-time.After(3 * time.Second):
				t.Fatalf("no notification for %s", tt.name)
			}
		})
	}
}
