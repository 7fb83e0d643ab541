// Posts framed batches to an HTTP collector
package collector

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"santasleigh/internal/global"
	"time"
)

func New(cfg Config) (sink *Sink, err error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		err = fmt.Errorf("invalid collector URL: %w", err)
		return
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		err = fmt.Errorf("collector URL must be http or https, got %q", cfg.URL)
		return
	}
	if endpoint.Host == "" {
		err = fmt.Errorf("collector URL %q has no host", cfg.URL)
		return
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = global.DefaultSinkTimeout
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		err = fmt.Errorf("client certificate and key must be set together")
		return
	}

	tlsConfig, err := buildTLS(cfg)
	if err != nil {
		return
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
		ForceAttemptHTTP2:   true,
	}

	sink = &Sink{
		Namespace: []string{global.NSSink, "Collector"},
		cfg:       cfg,
		url:       endpoint.String(),
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
	return
}

func buildTLS(cfg Config) (tlsConfig *tls.Config, err error) {
	tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		var pem []byte
		pem, err = os.ReadFile(cfg.CAFile)
		if err != nil {
			err = fmt.Errorf("failed to read CA file: %w", err)
			return
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			err = fmt.Errorf("no certificates found in CA file %q", cfg.CAFile)
			return
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" {
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			err = fmt.Errorf("failed to load client certificate: %w", err)
			return
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return
}

func (sink *Sink) Name() string {
	return "collector " + sink.url
}

func (sink *Sink) Close() (err error) {
	sink.client.CloseIdleConnections()
	return
}
