package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgBaseName string = "santa-sleigh"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath  string = "/etc/santa-sleigh/config.json"
	DefaultStateFile   string = "/var/db/santa-sleigh/checkpoint.json"
	DefaultSpillDir    string = "/var/db/santa-sleigh/spill"
	DefaultDarwinLog   string = "/var/db/santa/log.ndjson"
	DefaultLinuxLog    string = "/var/log/pedro/log.ndjson"
	DefaultTokenEnvVar string = "SANTA_SLEIGH_TOKEN"

	// Source reading
	DefaultPollInterval time.Duration = 1 * time.Second
	DefaultMaxLineBytes int           = 1 << 20
	ReadChunkSize       int           = 64 << 10

	// Batching
	DefaultBatchEvents  int           = 500
	DefaultBatchBytes   int           = 1 << 20
	DefaultBatchMaxWait time.Duration = 5 * time.Second

	// Delivery
	DefaultMaxAttempts    int           = 8
	DefaultMaxElapsed     time.Duration = 5 * time.Minute
	DefaultInitialBackoff time.Duration = 500 * time.Millisecond
	DefaultMaxBackoff     time.Duration = 30 * time.Second
	DefaultPendingBatches int           = 8
	DefaultPendingBytes   int64         = 64 << 20
	DefaultRawQueueLines  int           = 4096
	DefaultStallWarning   time.Duration = 30 * time.Second
	DefaultSinkTimeout    time.Duration = 30 * time.Second
	DefaultSpillMaxBytes  int64         = 256 << 20

	// Timeout values
	DefaultShutdownGrace time.Duration = 10 * time.Second
	WorkerRestartMin     time.Duration = 1 * time.Second
	WorkerRestartMax     time.Duration = 30 * time.Second

	// Metrics
	DefaultMetricInterval  time.Duration = 1 * time.Minute
	DefaultMetricRetention time.Duration = 1 * time.Hour
	DefaultQueryAddress    string        = "127.0.0.1:9465"
	HTTPReadTimeout        time.Duration = 10 * time.Second
	HTTPWriteTimeout       time.Duration = 10 * time.Second
	HTTPIdleTimeout        time.Duration = 60 * time.Second

	// Namespacing Name Components
	NSMetric     string = "Metrics"
	NSTest       string = "Test"
	NSCLI        string = "CLI"
	NSSupervisor string = "Supervisor"
	NSTailer     string = "Tailer"
	NSWatcher    string = "Watcher"
	NSBatcher    string = "Batcher"
	NSUploader   string = "Uploader"
	NSQueue      string = "Queue"
	NSSpill      string = "Spill"
	NSCheckpoint string = "Checkpoint"
	NSSink       string = "Sink"
)
