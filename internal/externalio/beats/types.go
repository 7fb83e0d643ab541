package beats

import (
	"crypto/tls"
	"sync"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

type Config struct {
	Address          string // host:port of the Logstash/Beats listener
	TLS              bool
	CAFile           string
	CertFile         string
	KeyFile          string
	ServerName       string
	CompressionLevel int // 0 disables compression, 1-9
	Timeout          time.Duration
	Hostname         string
	SourcePath       string // reported as log.file.path
}

// Lumberjack v2 output
type Sink struct {
	Namespace []string
	cfg       Config
	tlsConfig *tls.Config // nil for plain TCP

	mu     sync.Mutex // one window in flight per connection
	client *lumberjack.SyncClient
}
