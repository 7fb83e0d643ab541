package supervisor

// Written by `configure --config-template`. Comments are allowed in the config file.
const ConfigTemplate string = `{
  // Telemetry log written by the endpoint agent
  "source": {
    "path": "/var/db/santa/log.ndjson",
    "startAt": "end",          // end or beginning, used only without a checkpoint
    "pollInterval": "1s",
    "maxLineBytes": 1048576
  },
  "stateFile": "/var/db/santa-sleigh/checkpoint.json",
  "batch": {
    "maxEvents": 500,
    "maxBytes": 1048576,
    "maxWait": "5s"
  },
  "upload": {
    "sink": "collector",       // collector, s3, beats or kafka
    "concurrency": 1,
    "maxAttempts": 8,
    "maxElapsed": "5m",
    "initialBackoff": "500ms",
    "maxBackoff": "30s",
    "failurePolicy": "spill",  // spill or drop
    "pendingBatches": 8,
    "pendingBytes": 67108864,
    "shutdownGrace": "10s",
    "stallWarning": "30s",
    "compression": "zstd"      // none, gzip, zstd or lz4
  },
  "spill": {
    "directory": "/var/db/santa-sleigh/spill",
    "maxBytes": 268435456,
    "key": ""                  // non-empty seals spilled batches
  },
  "collector": {
    "url": "https://collector.example.com/v1/ingest",
    "token": "",               // or SANTA_SLEIGH_TOKEN
    "timeout": "30s"
  },
  "s3": {
    "region": "us-east-1",
    "bucket": "",
    "prefix": "santa"
  },
  "beats": {
    "address": "logstash.example.com:5044",
    "tls": true,
    "compressionLevel": 3
  },
  "kafka": {
    "brokers": ["kafka-1.example.com:9092"],
    "topic": "santa-telemetry",
    "compression": "zstd"
  },
  "logging": {
    "logLevel": 1,
    "logFile": ""
  },
  "metrics": {
    "collectionInterval": "1m",
    "maximumRetention": "1h",
    "enableQueryServer": false,
    "queryServerAddress": "127.0.0.1:9465"
  }
}
`
