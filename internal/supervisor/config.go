package supervisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"santasleigh/internal/framing"
	"santasleigh/internal/global"
	"santasleigh/internal/uploader"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

// Loads JSON config (comments allowed) from file
func LoadConfig(path string) (cfg JSONConfig, err error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config file: %w", err)
		return
	}

	err = json.Unmarshal(jsonc.ToJSON(configFile), &cfg)
	if err != nil {
		err = fmt.Errorf("invalid config syntax in '%s': %w", path, err)
		return
	}
	return
}

// Collects duration parse failures instead of stopping at the first
type durationParser struct {
	problems []string
}

func (parser *durationParser) parse(field, value string) (duration time.Duration) {
	if value == "" {
		return
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		parser.problems = append(parser.problems, fmt.Sprintf("%s: %v", field, err))
	}
	return
}

// Parses JSON config into daemon config. Environment fallbacks fill empty credentials.
func (cfg JSONConfig) NewDaemonConf() (config Config, err error) {
	var durations durationParser

	// Source settings
	config.SourcePath = cfg.Source.Path
	switch strings.ToLower(cfg.Source.StartAt) {
	case "", "end":
		config.StartAtEnd = true
	case "beginning":
		config.StartAtEnd = false
	default:
		durations.problems = append(durations.problems, fmt.Sprintf("source.startAt must be 'end' or 'beginning', got %q", cfg.Source.StartAt))
	}
	config.PollInterval = durations.parse("source.pollInterval", cfg.Source.PollInterval)
	config.MaxLineBytes = cfg.Source.MaxLineBytes
	config.StateFilePath = cfg.StateFile

	// Batching
	config.Batch.MaxEvents = cfg.Batch.MaxEvents
	config.Batch.MaxBytes = cfg.Batch.MaxBytes
	config.Batch.MaxWait = durations.parse("batch.maxWait", cfg.Batch.MaxWait)

	// Delivery
	config.Sink = strings.ToLower(cfg.Upload.Sink)
	config.Upload.Concurrency = cfg.Upload.Concurrency
	config.Upload.MaxAttempts = cfg.Upload.MaxAttempts
	config.Upload.MaxElapsed = durations.parse("upload.maxElapsed", cfg.Upload.MaxElapsed)
	config.Upload.InitialBackoff = durations.parse("upload.initialBackoff", cfg.Upload.InitialBackoff)
	config.Upload.MaxBackoff = durations.parse("upload.maxBackoff", cfg.Upload.MaxBackoff)
	config.Upload.ReplayInterval = durations.parse("upload.replayInterval", cfg.Upload.ReplayInterval)
	config.Upload.Policy = uploader.FailurePolicy(strings.ToLower(cfg.Upload.FailurePolicy))
	config.Upload.Encoding, err = framing.ParseEncoding(cfg.Upload.Compression)
	if err != nil {
		durations.problems = append(durations.problems, fmt.Sprintf("upload.compression: %v", err))
		err = nil
	}
	config.PendingBatches = cfg.Upload.PendingBatches
	config.PendingBytes = cfg.Upload.PendingBytes
	config.ShutdownGrace = durations.parse("upload.shutdownGrace", cfg.Upload.ShutdownGrace)
	config.StallWarning = durations.parse("upload.stallWarning", cfg.Upload.StallWarning)

	// Spill
	config.SpillDir = cfg.Spill.Directory
	config.SpillMaxBytes = cfg.Spill.MaxBytes
	config.SpillKey = cfg.Spill.Key

	// Collector
	config.Collector.URL = cfg.Collector.URL
	config.Collector.Token = cfg.Collector.Token
	if config.Collector.Token == "" {
		config.Collector.Token = os.Getenv(global.DefaultTokenEnvVar)
	}
	config.Collector.Headers = cfg.Collector.Headers
	config.Collector.CAFile = cfg.Collector.CAFile
	config.Collector.CertFile = cfg.Collector.CertFile
	config.Collector.KeyFile = cfg.Collector.KeyFile
	config.Collector.Timeout = durations.parse("collector.timeout", cfg.Collector.Timeout)

	// S3
	config.S3.Region = firstSet(cfg.S3.Region, os.Getenv("AWS_REGION"))
	config.S3.Bucket = cfg.S3.Bucket
	config.S3.Prefix = cfg.S3.Prefix
	config.S3.Endpoint = cfg.S3.Endpoint
	config.S3.UsePathStyle = cfg.S3.UsePathStyle
	config.S3.Profile = firstSet(cfg.S3.Profile, os.Getenv("AWS_PROFILE"))
	config.S3.AccessKey = firstSet(cfg.S3.AccessKey, os.Getenv("AWS_ACCESS_KEY_ID"))
	config.S3.SecretKey = firstSet(cfg.S3.SecretKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))
	config.S3.SessionToken = firstSet(cfg.S3.SessionToken, os.Getenv("AWS_SESSION_TOKEN"))
	config.S3.NameRoot = cfg.S3.NameRoot

	// Beats
	config.Beats.Address = cfg.Beats.Address
	config.Beats.TLS = cfg.Beats.TLS
	config.Beats.CAFile = cfg.Beats.CAFile
	config.Beats.CertFile = cfg.Beats.CertFile
	config.Beats.KeyFile = cfg.Beats.KeyFile
	config.Beats.ServerName = cfg.Beats.ServerName
	config.Beats.CompressionLevel = cfg.Beats.CompressionLevel
	config.Beats.Timeout = durations.parse("beats.timeout", cfg.Beats.Timeout)

	// Kafka
	config.Kafka.Brokers = cfg.Kafka.Brokers
	config.Kafka.Topic = cfg.Kafka.Topic
	config.Kafka.Compression = cfg.Kafka.Compression
	config.Kafka.TLS = cfg.Kafka.TLS
	config.Kafka.CAFile = cfg.Kafka.CAFile
	config.Kafka.CertFile = cfg.Kafka.CertFile
	config.Kafka.KeyFile = cfg.Kafka.KeyFile
	config.Kafka.Username = cfg.Kafka.Username
	config.Kafka.Password = cfg.Kafka.Password
	config.Kafka.Timeout = durations.parse("kafka.timeout", cfg.Kafka.Timeout)

	// Logging
	config.LogLevel = cfg.Logging.LogLevel
	config.LogFile = cfg.Logging.LogFile

	// Metric settings
	config.MetricCollectionInterval = durations.parse("metrics.collectionInterval", cfg.Metrics.Interval)
	config.MetricMaxAge = durations.parse("metrics.maximumRetention", cfg.Metrics.MaxAge)
	config.MetricQueryServer = cfg.Metrics.Query
	config.MetricQueryAddress = cfg.Metrics.Address

	if len(durations.problems) > 0 {
		err = errors.New(strings.Join(durations.problems, "; "))
		return
	}

	config.setDefaults()
	return
}

func firstSet(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// Sets defaults for any missing values
func (cfg *Config) setDefaults() {
	// Source
	if cfg.SourcePath == "" {
		cfg.SourcePath = global.DefaultLinuxLog
		if runtime.GOOS == "darwin" {
			cfg.SourcePath = global.DefaultDarwinLog
		}
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = global.DefaultPollInterval
	}
	if cfg.MaxLineBytes == 0 {
		cfg.MaxLineBytes = global.DefaultMaxLineBytes
	}
	if cfg.StateFilePath == "" {
		cfg.StateFilePath = global.DefaultStateFile
	}

	// Batching
	if cfg.Batch.MaxEvents == 0 {
		cfg.Batch.MaxEvents = global.DefaultBatchEvents
	}
	if cfg.Batch.MaxBytes == 0 {
		cfg.Batch.MaxBytes = global.DefaultBatchBytes
	}
	if cfg.Batch.MaxWait == 0 {
		cfg.Batch.MaxWait = global.DefaultBatchMaxWait
	}

	// Delivery
	if cfg.Upload.Concurrency == 0 {
		cfg.Upload.Concurrency = 1
	}
	if cfg.Upload.MaxAttempts == 0 {
		cfg.Upload.MaxAttempts = global.DefaultMaxAttempts
	}
	if cfg.Upload.MaxElapsed == 0 {
		cfg.Upload.MaxElapsed = global.DefaultMaxElapsed
	}
	if cfg.Upload.InitialBackoff == 0 {
		cfg.Upload.InitialBackoff = global.DefaultInitialBackoff
	}
	if cfg.Upload.MaxBackoff == 0 {
		cfg.Upload.MaxBackoff = global.DefaultMaxBackoff
	}
	if cfg.Upload.Policy == "" {
		cfg.Upload.Policy = uploader.PolicySpill
	}
	if cfg.PendingBatches == 0 {
		cfg.PendingBatches = global.DefaultPendingBatches
	}
	if cfg.PendingBytes == 0 {
		cfg.PendingBytes = global.DefaultPendingBytes
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = global.DefaultShutdownGrace
	}
	if cfg.StallWarning == 0 {
		cfg.StallWarning = global.DefaultStallWarning
	}

	// Spill
	if cfg.SpillDir == "" {
		cfg.SpillDir = global.DefaultSpillDir
	}
	if cfg.SpillMaxBytes == 0 {
		cfg.SpillMaxBytes = global.DefaultSpillMaxBytes
	}

	// Sinks
	if cfg.S3.NameRoot == "" {
		base := filepath.Base(cfg.SourcePath)
		cfg.S3.NameRoot = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// Metrics
	if cfg.MetricCollectionInterval == 0 {
		cfg.MetricCollectionInterval = global.DefaultMetricInterval
	}
	if cfg.MetricMaxAge == 0 {
		cfg.MetricMaxAge = global.DefaultMetricRetention
	}
	if cfg.MetricQueryAddress == "" {
		cfg.MetricQueryAddress = global.DefaultQueryAddress
	}
}

// Reports every problem at once
func (cfg Config) validate() (err error) {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !filepath.IsAbs(cfg.SourcePath) {
		add("source.path must be absolute, got %q", cfg.SourcePath)
	}
	if cfg.PollInterval < 0 {
		add("source.pollInterval must be positive")
	}
	if cfg.MaxLineBytes < 0 {
		add("source.maxLineBytes must be positive")
	}
	if cfg.StateFilePath == "" {
		add("stateFile is required")
	}
	if cfg.Batch.MaxEvents < 1 || cfg.Batch.MaxBytes < 1 || cfg.Batch.MaxWait <= 0 {
		add("batch thresholds must be positive (maxEvents %d, maxBytes %d, maxWait %s)",
			cfg.Batch.MaxEvents, cfg.Batch.MaxBytes, cfg.Batch.MaxWait)
	}
	if cfg.Upload.Concurrency < 1 || cfg.Upload.MaxAttempts < 1 {
		add("upload.concurrency and upload.maxAttempts must be at least 1")
	}
	if cfg.Upload.MaxElapsed < 0 || cfg.Upload.InitialBackoff < 0 || cfg.Upload.MaxBackoff < 0 {
		add("upload durations must not be negative")
	}
	switch cfg.Upload.Policy {
	case uploader.PolicyDrop, uploader.PolicySpill:
	default:
		add("upload.failurePolicy must be 'drop' or 'spill', got %q", cfg.Upload.Policy)
	}
	if cfg.PendingBatches < 1 || cfg.PendingBytes < 1 {
		add("upload.pendingBatches and upload.pendingBytes must be positive")
	}
	if cfg.Upload.Policy == uploader.PolicySpill && cfg.SpillDir == "" {
		add("spill.directory is required with the spill policy")
	}

	switch cfg.Sink {
	case "collector":
		if cfg.Collector.URL == "" {
			add("collector.url is required")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			add("s3.bucket is required")
		}
		if cfg.S3.Region == "" {
			add("s3.region is required (or AWS_REGION)")
		}
	case "beats":
		if cfg.Beats.Address == "" {
			add("beats.address is required")
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			add("kafka.brokers and kafka.topic are required")
		}
	case "":
		add("upload.sink is required (collector, s3, beats or kafka)")
	default:
		add("unknown upload.sink %q", cfg.Sink)
	}

	if cfg.LogLevel < global.VerbosityNone || cfg.LogLevel > global.VerbosityDebug {
		add("logging.logLevel must be between %d and %d", global.VerbosityNone, global.VerbosityDebug)
	}
	if cfg.MetricCollectionInterval < 0 || cfg.MetricMaxAge < 0 {
		add("metric durations must not be negative")
	}
	if cfg.MetricQueryServer {
		if _, _, splitErr := net.SplitHostPort(cfg.MetricQueryAddress); splitErr != nil {
			add("metrics.queryServerAddress must be host:port: %v", splitErr)
		}
	}

	if len(problems) > 0 {
		err = fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return
}
