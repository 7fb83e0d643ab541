package supervisor

import (
	"context"
	"fmt"
	"santasleigh/internal/externalio/beats"
	"santasleigh/internal/externalio/collector"
	"santasleigh/internal/externalio/kafka"
	"santasleigh/internal/externalio/s3"
	"santasleigh/internal/global"
	"santasleigh/internal/uploader"
)

// Builds the configured sink. Settings are validated here, connections are made on first delivery.
func newSink(ctx context.Context, cfg Config) (sink uploader.Sink, err error) {
	switch cfg.Sink {
	case "collector":
		sinkCfg := cfg.Collector
		sinkCfg.Hostname = global.Hostname
		sink, err = collector.New(sinkCfg)
	case "s3":
		sinkCfg := cfg.S3
		sinkCfg.Hostname = global.Hostname
		sink, err = s3.New(ctx, sinkCfg)
	case "beats":
		sinkCfg := cfg.Beats
		sinkCfg.Hostname = global.Hostname
		sinkCfg.SourcePath = cfg.SourcePath
		sink, err = beats.New(sinkCfg)
	case "kafka":
		sinkCfg := cfg.Kafka
		sinkCfg.Hostname = global.Hostname
		sink, err = kafka.New(sinkCfg)
	default:
		err = fmt.Errorf("unknown sink %q", cfg.Sink)
	}
	if err != nil {
		sink = nil
		err = fmt.Errorf("failed to set up %s sink: %w", cfg.Sink, err)
	}
	return
}
