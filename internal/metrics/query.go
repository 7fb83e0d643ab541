package metrics

import (
	"fmt"
	"santasleigh/internal/calc"
	"strings"
	"time"
)

// Share of extreme samples dropped from each end for mean aggregation
const meanTrimPercent float64 = 0.1

// JSON form of a metric for the query server
type JMetric struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Namespace   string    `json:"namespace"`
	Type        string    `json:"type"`
	Value       uint64    `json:"value"`
	Unit        string    `json:"unit"`
	Interval    string    `json:"interval"`
	Timestamp   time.Time `json:"timestamp"`
}

func (metric Metric) Convert() (out JMetric) {
	out = JMetric{
		Name:        metric.Name,
		Description: metric.Description,
		Namespace:   strings.Join(metric.Namespace, "/"),
		Type:        string(metric.Type),
		Value:       metric.Value.Raw,
		Unit:        metric.Value.Unit,
		Interval:    metric.Value.Interval.String(),
		Timestamp:   metric.Timestamp,
	}
	return
}

// Newest sample of every metric matching name and namespace prefix
func (registry *Registry) Discover(name string, namespacePrefix []string) (results []Metric) {
	latest := make(map[string]Metric)
	var order []string
	for _, metric := range registry.Search(name, namespacePrefix, time.Time{}, time.Time{}) {
		key := strings.Join(metric.Namespace, "/") + "." + metric.Name
		if _, seen := latest[key]; !seen {
			order = append(order, key)
		}
		latest[key] = metric // Search returns oldest first
	}
	for _, key := range order {
		results = append(results, latest[key])
	}
	return
}

// Combines every sample of one metric in the window: sum, mean, min, max or latest.
// Namespace must identify a single metric.
func (registry *Registry) Aggregate(aggType, name string, namespace []string, start, end time.Time) (result Metric, err error) {
	if name == "" {
		err = fmt.Errorf("metric name is required")
		return
	}

	samples := registry.Search(name, namespace, start, end)
	if len(samples) == 0 {
		err = fmt.Errorf("no samples for %s in %v", name, namespace)
		return
	}
	first := strings.Join(samples[0].Namespace, "/")
	values := make([]uint64, 0, len(samples))
	for _, sample := range samples {
		if strings.Join(sample.Namespace, "/") != first {
			err = fmt.Errorf("namespace %v matches more than one %s metric", namespace, name)
			return
		}
		values = append(values, sample.Value.Raw)
	}

	result = samples[len(samples)-1]
	result.Value.Interval = end.Sub(start)

	switch strings.ToLower(aggType) {
	case "sum":
		result.Value.Raw = 0
		for _, value := range values {
			result.Value.Raw += value
		}
	case "mean", "":
		result.Value.Raw = calc.TrimmedMeanUint64(values, meanTrimPercent)
	case "min":
		result.Value.Raw = values[0]
		for _, value := range values {
			result.Value.Raw = min(result.Value.Raw, value)
		}
	case "max":
		result.Value.Raw = 0
		for _, value := range values {
			result.Value.Raw = max(result.Value.Raw, value)
		}
	case "latest":
		result.Value.Interval = samples[len(samples)-1].Value.Interval
	default:
		err = fmt.Errorf("unknown aggregation %q (sum, mean, min, max, latest)", aggType)
		return
	}
	return
}
