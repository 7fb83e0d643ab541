// Ships batches to a Beats (lumberjack v2) listener with windowed acknowledgement
package beats

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"santasleigh/internal/global"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

// Validates settings. The connection is dialed on first delivery and after any failure.
func New(cfg Config) (sink *Sink, err error) {
	host, _, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		err = fmt.Errorf("invalid beats address %q: %w", cfg.Address, err)
		return
	}
	if cfg.CompressionLevel < 0 || cfg.CompressionLevel > 9 {
		err = fmt.Errorf("beats compression level must be 0-9, got %d", cfg.CompressionLevel)
		return
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = global.DefaultSinkTimeout
	}

	sink = &Sink{
		Namespace: []string{global.NSSink, "Beats"},
		cfg:       cfg,
	}

	if cfg.TLS {
		sink.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.ServerName}
		if sink.tlsConfig.ServerName == "" {
			sink.tlsConfig.ServerName = host
		}
		err = loadTLSFiles(sink.tlsConfig, cfg)
		if err != nil {
			sink = nil
			return
		}
	}
	return
}

func loadTLSFiles(tlsConfig *tls.Config, cfg Config) (err error) {
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates found in CA file %q", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return fmt.Errorf("client certificate and key must be set together")
	}
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return
}

// Caller holds mu
func (sink *Sink) connect() (err error) {
	if sink.client != nil {
		return
	}

	opts := []lumberjack.Option{
		lumberjack.CompressionLevel(sink.cfg.CompressionLevel),
		lumberjack.Timeout(sink.cfg.Timeout),
	}

	dialer := &net.Dialer{Timeout: sink.cfg.Timeout}
	dial := dialer.Dial
	if sink.tlsConfig != nil {
		dial = func(network, address string) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, address, sink.tlsConfig)
		}
	}

	client, err := lumberjack.SyncDialWith(dial, sink.cfg.Address, opts...)
	if err != nil {
		err = fmt.Errorf("failed connection to beats server: %w", err)
		return
	}
	sink.client = client
	return
}

func (sink *Sink) Name() string {
	return "beats " + sink.cfg.Address
}

// Gracefully stops the connection
func (sink *Sink) Close() (err error) {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	if sink.client != nil {
		err = sink.client.Close()
		sink.client = nil
	}
	return
}
