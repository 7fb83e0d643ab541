package supervisor

import (
	"context"
	"net/http"
	"santasleigh/internal/batcher"
	"santasleigh/internal/checkpoint"
	"santasleigh/internal/externalio/beats"
	"santasleigh/internal/externalio/collector"
	"santasleigh/internal/externalio/kafka"
	"santasleigh/internal/externalio/s3"
	"santasleigh/internal/metrics"
	"santasleigh/internal/queue"
	"santasleigh/internal/source"
	"santasleigh/internal/spill"
	"santasleigh/internal/tailer"
	"santasleigh/internal/uploader"
	"sync"
	"sync/atomic"
	"time"
)

type JSONConfig struct {
	Source struct {
		Path         string `json:"path"`
		StartAt      string `json:"startAt,omitempty"`
		PollInterval string `json:"pollInterval,omitempty"`
		MaxLineBytes int    `json:"maxLineBytes,omitempty"`
	} `json:"source"`
	StateFile string `json:"stateFile"`
	Batch     struct {
		MaxEvents int    `json:"maxEvents,omitempty"`
		MaxBytes  int    `json:"maxBytes,omitempty"`
		MaxWait   string `json:"maxWait,omitempty"`
	} `json:"batch"`
	Upload struct {
		Sink           string `json:"sink"`
		Concurrency    int    `json:"concurrency,omitempty"`
		MaxAttempts    int    `json:"maxAttempts,omitempty"`
		MaxElapsed     string `json:"maxElapsed,omitempty"`
		InitialBackoff string `json:"initialBackoff,omitempty"`
		MaxBackoff     string `json:"maxBackoff,omitempty"`
		FailurePolicy  string `json:"failurePolicy,omitempty"`
		PendingBatches int    `json:"pendingBatches,omitempty"`
		PendingBytes   int64  `json:"pendingBytes,omitempty"`
		ShutdownGrace  string `json:"shutdownGrace,omitempty"`
		StallWarning   string `json:"stallWarning,omitempty"`
		Compression    string `json:"compression,omitempty"`
		ReplayInterval string `json:"replayInterval,omitempty"`
	} `json:"upload"`
	Spill struct {
		Directory string `json:"directory,omitempty"`
		MaxBytes  int64  `json:"maxBytes,omitempty"`
		Key       string `json:"key,omitempty"`
	} `json:"spill"`
	Collector struct {
		URL      string            `json:"url"`
		Token    string            `json:"token,omitempty"`
		Headers  map[string]string `json:"headers,omitempty"`
		CAFile   string            `json:"caFile,omitempty"`
		CertFile string            `json:"certFile,omitempty"`
		KeyFile  string            `json:"keyFile,omitempty"`
		Timeout  string            `json:"timeout,omitempty"`
	} `json:"collector"`
	S3 struct {
		Region       string `json:"region"`
		Bucket       string `json:"bucket"`
		Prefix       string `json:"prefix,omitempty"`
		Endpoint     string `json:"endpoint,omitempty"`
		UsePathStyle bool   `json:"usePathStyle,omitempty"`
		Profile      string `json:"profile,omitempty"`
		AccessKey    string `json:"accessKeyID,omitempty"`
		SecretKey    string `json:"secretAccessKey,omitempty"`
		SessionToken string `json:"sessionToken,omitempty"`
		NameRoot     string `json:"nameRoot,omitempty"`
	} `json:"s3"`
	Beats struct {
		Address          string `json:"address"`
		TLS              bool   `json:"tls,omitempty"`
		CAFile           string `json:"caFile,omitempty"`
		CertFile         string `json:"certFile,omitempty"`
		KeyFile          string `json:"keyFile,omitempty"`
		ServerName       string `json:"serverName,omitempty"`
		CompressionLevel int    `json:"compressionLevel,omitempty"`
		Timeout          string `json:"timeout,omitempty"`
	} `json:"beats"`
	Kafka struct {
		Brokers     []string `json:"brokers"`
		Topic       string   `json:"topic"`
		Compression string   `json:"compression,omitempty"`
		TLS         bool     `json:"tls,omitempty"`
		CAFile      string   `json:"caFile,omitempty"`
		CertFile    string   `json:"certFile,omitempty"`
		KeyFile     string   `json:"keyFile,omitempty"`
		Username    string   `json:"username,omitempty"`
		Password    string   `json:"password,omitempty"`
		Timeout     string   `json:"timeout,omitempty"`
	} `json:"kafka"`
	Logging struct {
		LogLevel int    `json:"logLevel,omitempty"`
		LogFile  string `json:"logFile,omitempty"`
	} `json:"logging"`
	Metrics struct {
		Interval string `json:"collectionInterval,omitempty"`
		MaxAge   string `json:"maximumRetention,omitempty"`
		Query    bool   `json:"enableQueryServer,omitempty"`
		Address  string `json:"queryServerAddress,omitempty"`
	} `json:"metrics"`
}

type Config struct {
	// Source
	SourcePath   string
	StartAtEnd   bool
	PollInterval time.Duration
	MaxLineBytes int

	StateFilePath string

	// Batching
	Batch batcher.Config

	// Delivery
	Sink           string
	Upload         uploader.Config
	PendingBatches int
	PendingBytes   int64
	ShutdownGrace  time.Duration
	StallWarning   time.Duration

	// Spill
	SpillDir      string
	SpillMaxBytes int64
	SpillKey      string

	// Sinks (only the selected one is used)
	Collector collector.Config
	S3        s3.Config
	Beats     beats.Config
	Kafka     kafka.Config

	LogLevel int
	LogFile  string

	MetricCollectionInterval time.Duration
	MetricMaxAge             time.Duration
	MetricQueryServer        bool
	MetricQueryAddress       string
}

// Anything exposing interval metrics
type Collector interface {
	CollectMetrics(interval time.Duration) (collection []metrics.Metric)
}

type Gatherer struct {
	Interval  time.Duration     // Polling interval to gather metrics at
	Retention time.Duration     // Maximum time to maintain metrics for
	Registry  *metrics.Registry // Storage for metric data
	Sources   []Collector
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	// Per-stage contexts so shutdown can stop them in order
	tailerCancel   context.CancelFunc
	batcherCancel  context.CancelFunc
	uploaderCancel context.CancelFunc

	tailerDone   chan struct{}
	batcherDone  chan struct{}
	uploaderDone chan struct{}
	stopped      chan struct{}
	shutdownOnce sync.Once

	wg sync.WaitGroup

	opener     source.Opener // nil uses the real file at SourcePath
	notifier   source.Notifier
	checkpoint *checkpoint.Store
	spill      *spill.Store
	sink       uploader.Sink

	rawQueue   *queue.Queue[tailer.RawRecord]
	batchQueue *queue.Queue[*batcher.Batch]

	Tailer   *tailer.Tailer
	Batcher  *batcher.Batcher
	Uploader *uploader.Uploader
	Gatherer *Gatherer

	queryServer *http.Server

	restarts atomic.Uint64
}
