// Follows the telemetry log across rotation and truncation, emitting complete lines in order
package tailer

import (
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/global"
	"santasleigh/internal/source"
)

// Creates a tailer. resume is nil when no checkpoint exists.
func New(cfg Config, opener source.Opener, notifier source.Notifier, out Outbox, resume *checkpoint.Position) (new *Tailer) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = global.DefaultPollInterval
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = global.DefaultMaxLineBytes
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = global.ReadChunkSize
	}

	new = &Tailer{
		Namespace: []string{global.NSTailer},
		cfg:       cfg,
		opener:    opener,
		notifier:  notifier,
		out:       out,
		resume:    resume,
		state:     Seeking,
		buf:       make([]byte, cfg.ChunkSize),
	}
	return
}

// Position after the last emitted record
func (tailer *Tailer) Position() (pos checkpoint.Position) {
	tailer.mu.Lock()
	pos = tailer.pos
	tailer.mu.Unlock()
	return
}

// Current state machine step
func (tailer *Tailer) State() (state State) {
	tailer.mu.Lock()
	state = tailer.state
	tailer.mu.Unlock()
	return
}

// Only Run writes state; the lock is for State callers on other goroutines
func (tailer *Tailer) setState(state State) {
	tailer.mu.Lock()
	tailer.state = state
	tailer.mu.Unlock()
}
