// Publishes batch events to a Kafka topic with all-replica acknowledgement
package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"santasleigh/internal/global"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

func New(cfg Config) (sink *Sink, err error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		err = fmt.Errorf("kafka sink requires brokers and topic")
		return
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = global.DefaultSinkTimeout
	}

	compression, err := parseCompression(cfg.Compression)
	if err != nil {
		return
	}

	transport := &kafkago.Transport{
		DialTimeout: cfg.Timeout,
		ClientID:    global.ProgBaseName,
	}
	if cfg.TLS {
		transport.TLS, err = tlsConfig(cfg)
		if err != nil {
			return
		}
	}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	sink = &Sink{
		Namespace: []string{global.NSSink, "Kafka"},
		cfg:       cfg,
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			Async:        false,
			MaxAttempts:  1, // retries belong to the uploader
			BatchSize:    global.DefaultBatchEvents,
			BatchBytes:   int64(global.DefaultBatchBytes) * 2,
			BatchTimeout: 0,
			WriteTimeout: cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			Compression:  compression,
			Transport:    transport,
		},
	}
	return
}

func parseCompression(name string) (compression kafkago.Compression, err error) {
	switch strings.ToLower(name) {
	case "", "none":
	case "gzip":
		compression = kafkago.Gzip
	case "snappy":
		compression = kafkago.Snappy
	case "lz4":
		compression = kafkago.Lz4
	case "zstd":
		compression = kafkago.Zstd
	default:
		err = fmt.Errorf("unknown kafka compression %q", name)
	}
	return
}

func tlsConfig(cfg Config) (config *tls.Config, err error) {
	config = &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %q", cfg.CAFile)
		}
		config.RootCAs = pool
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, fmt.Errorf("client certificate and key must be set together")
	}
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}
	return
}

func (sink *Sink) Name() string {
	return "kafka " + sink.cfg.Topic
}

func (sink *Sink) Close() (err error) {
	err = sink.writer.Close()
	return
}
