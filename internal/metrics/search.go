package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Supports exact match or prefix match. Empty query matches all.
func matchesNamespace(metricNS, queryNS []string) (matches bool) {
	if len(metricNS) < len(queryNS) {
		return
	}
	for i := range queryNS {
		if metricNS[i] != queryNS[i] {
			return
		}
	}
	matches = true
	return
}

// Returns all metrics matching name and namespace prefix, oldest slice first.
// Empty name or prefix matches everything. Zero start/end leave the window open.
func (registry *Registry) Search(name string, namespacePrefix []string, start, end time.Time) (results []Metric) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	var timestamps []time.Time
	for ts := range registry.metrics {
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	for _, ts := range timestamps {
		namespaces := make([]string, 0, len(registry.metrics[ts]))
		for nsStr := range registry.metrics[ts] {
			namespaces = append(namespaces, nsStr)
		}
		sort.Strings(namespaces)

		for _, nsStr := range namespaces {
			if !matchesNamespace(strings.Split(nsStr, "/"), namespacePrefix) {
				continue
			}
			names := make([]string, 0)
			for metricName := range registry.metrics[ts][nsStr] {
				if name == "" || metricName == name {
					names = append(names, metricName)
				}
			}
			sort.Strings(names)
			for _, metricName := range names {
				results = append(results, registry.metrics[ts][nsStr][metricName])
			}
		}
	}
	return
}

// Sums a counter across all slices in the window
func (registry *Registry) Total(name string, namespacePrefix []string, start, end time.Time) (total uint64) {
	for _, metric := range registry.Search(name, namespacePrefix, start, end) {
		total += metric.Value.Raw
	}
	return
}

// One line rendering of a slice of metrics (non-zero values only), ordered by namespace then name
func Summarize(collection []Metric) (line string) {
	parts := make([]string, 0, len(collection))
	for _, metric := range collection {
		if metric.Value.Raw == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s.%s=%d",
			strings.ToLower(strings.Join(metric.Namespace, ".")), metric.Name, metric.Value.Raw))
	}
	sort.Strings(parts)
	line = strings.Join(parts, " ")
	return
}
