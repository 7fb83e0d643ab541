package kafka

import (
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers     []string
	Topic       string
	Compression string // none, gzip, snappy, lz4, zstd
	TLS         bool
	CAFile      string
	CertFile    string
	KeyFile     string
	Username    string // SASL/PLAIN when set
	Password    string
	Timeout     time.Duration
	Hostname    string // message key
}

// Synchronous Kafka producer, one message per event
type Sink struct {
	Namespace []string
	cfg       Config
	writer    *kafkago.Writer
}

// Broker codes that mean credentials or ACLs are wrong
var authCodes = map[kafkago.Error]bool{
	kafkago.TopicAuthorizationFailed:           true,
	kafkago.ClusterAuthorizationFailed:         true,
	kafkago.TransactionalIDAuthorizationFailed: true,
	kafkago.SASLAuthenticationFailed:           true,
	kafkago.UnsupportedSASLMechanism:           true,
	kafkago.IllegalSASLState:                   true,
}
