package logctx

import (
	"io"
	"sync"
	"time"
)

// Log Event Structure
type Event struct {
	Timestamp time.Time
	Severity  string
	Tags      []string
	Message   string
}

// Logger Struct
type Logger struct {
	ID         string
	CreatedAt  time.Time
	queue      []Event         // event buffer
	mutex      sync.Mutex      // protects buffer and level
	cond       *sync.Cond      // signals new events to watchers
	Done       <-chan struct{} // closed when program is exiting
	PrintLevel int             // Level at which the message should be recorded
	wg         *sync.WaitGroup // Holds main thread exit until watchers drain
	closers    []io.Closer     // file outputs opened for this logger
}
