package collector

import (
	"net/http"
	"time"
)

type Config struct {
	URL      string
	Token    string            // bearer token, omitted when empty
	Headers  map[string]string // extra request headers
	CAFile   string            // PEM bundle replacing the system roots
	CertFile string            // client certificate for mutual TLS
	KeyFile  string
	Timeout  time.Duration
	Hostname string // sent as X-Instance-ID
}

// HTTP(S) NDJSON collector endpoint
type Sink struct {
	Namespace []string
	cfg       Config
	client    *http.Client
	url       string
}

// Bytes of an error response kept for the log
const maxErrorBody int64 = 512
