package server

import (
	"context"
	"santasleigh/internal/metrics"
	"time"
)

const (
	DataPath        string = "/data/"
	DiscoveryPath   string = "/discover/"
	AggregationPath string = "/aggregate/"
)

// Read side of the metric registry
type Querier interface {
	Search(name string, namespacePrefix []string, start, end time.Time) []metrics.Metric
	Discover(name string, namespacePrefix []string) []metrics.Metric
	Aggregate(aggType, name string, namespace []string, start, end time.Time) (metrics.Metric, error)
}

type httpLogWriter struct {
	ctx context.Context
}

type Jerror struct {
	Msg string `json:"error"`
}

// Request parameters shared by every endpoint
type query struct {
	name      string
	namespace []string
	start     time.Time
	end       time.Time
}
