package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"santasleigh/internal/metrics"
	"testing"
	"time"
)

type mockRegistry struct {
	searched   []string
	results    []metrics.Metric
	aggregated metrics.Metric
	aggErr     error
}

func (mock *mockRegistry) Search(name string, ns []string, start, end time.Time) []metrics.Metric {
	mock.searched = ns
	return mock.results
}

func (mock *mockRegistry) Discover(name string, ns []string) []metrics.Metric {
	mock.searched = ns
	return mock.results
}

func (mock *mockRegistry) Aggregate(agg, name string, ns []string, start, end time.Time) (metrics.Metric, error) {
	mock.searched = ns
	return mock.aggregated, mock.aggErr
}

func sample() []metrics.Metric {
	now := time.Now()
	return []metrics.Metric{
		metrics.NewCounter([]string{"Supervisor", "Uploader"}, "batches_acked", "", 3, time.Minute, now),
		metrics.NewGauge([]string{"Supervisor", "Uploader", "Queue"}, "depth", "", "count", 1, time.Minute, now),
	}
}

func TestRouting(t *testing.T) {
	registry := &mockRegistry{results: sample(), aggregated: sample()[0]}
	ts := httptest.NewServer(SetupListener(t.Context(), "127.0.0.1:0", registry).Handler)
	defer ts.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"index", http.MethodGet, "/", http.StatusOK},
		{"index POST rejected", http.MethodPost, "/", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/unknown", http.StatusNotFound},
		{"data", http.MethodGet, DataPath + "Supervisor/?name=batches_acked", http.StatusOK},
		{"data POST rejected", http.MethodPost, DataPath, http.StatusMethodNotAllowed},
		{"discover", http.MethodGet, DiscoveryPath, http.StatusOK},
		{"discover PATCH rejected", http.MethodPatch, DiscoveryPath, http.StatusMethodNotAllowed},
		{"aggregate", http.MethodGet, AggregationPath + "Supervisor/Uploader?name=batches_acked&aggregation=sum", http.StatusOK},
		{"aggregate DELETE rejected", http.MethodDelete, AggregationPath, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("http request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status=%d want=%d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHandleData(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		results    []metrics.Metric
		wantStatus int
	}{
		{"default window", DataPath + "?name=depth", sample(), http.StatusOK},
		{"no results", DataPath, nil, http.StatusNotFound},
		{"invalid starttime", DataPath + "?starttime=badtime", sample(), http.StatusBadRequest},
		{"unparsable relative start falls back", DataPath + "?starttime=-5w", sample(), http.StatusOK},
		{"relative start", DataPath + "?starttime=-5m", sample(), http.StatusOK},
		{"start in the future", DataPath + "?starttime=%2B15m", sample(), http.StatusBadRequest},
		{"invalid endtime", DataPath + "?endtime=+2y", sample(), http.StatusBadRequest},
		{"absolute start", DataPath + "?starttime=2001-01-02T01:02:03.001Z", sample(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mockRegistry{results: tt.results}
			recorder := httptest.NewRecorder()
			handleData(t.Context(), registry, recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if recorder.Code != tt.wantStatus {
				t.Fatalf("status=%d want=%d body=%s", recorder.Code, tt.wantStatus, recorder.Body.String())
			}
		})
	}
}

func TestHandleDiscoveryFiltersType(t *testing.T) {
	registry := &mockRegistry{results: sample()}

	recorder := httptest.NewRecorder()
	handleDiscovery(t.Context(), registry, recorder,
		httptest.NewRequest(http.MethodGet, DiscoveryPath+"Supervisor/Uploader/?type=gauge", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status=%d", recorder.Code)
	}
	var results []metrics.JMetric
	if err := json.Unmarshal(recorder.Body.Bytes(), &results); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(results) != 1 || results[0].Name != "depth" {
		t.Fatalf("expected only the gauge, got %+v", results)
	}
	if len(registry.searched) != 2 || registry.searched[1] != "Uploader" {
		t.Fatalf("namespace not parsed from path: %v", registry.searched)
	}

	recorder = httptest.NewRecorder()
	handleDiscovery(t.Context(), registry, recorder, httptest.NewRequest(http.MethodGet, DiscoveryPath+"?type=histogram", nil))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown type, got %d", recorder.Code)
	}
}

func TestHandleAggregation(t *testing.T) {
	tests := []struct {
		name       string
		aggErr     error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"registry error", errors.New("no samples"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mockRegistry{aggregated: sample()[0], aggErr: tt.aggErr}
			recorder := httptest.NewRecorder()
			handleAggregation(t.Context(), registry, recorder,
				httptest.NewRequest(http.MethodGet, AggregationPath+"Supervisor/Uploader?name=batches_acked&aggregation=max", nil))
			if recorder.Code != tt.wantStatus {
				t.Fatalf("status=%d want=%d", recorder.Code, tt.wantStatus)
			}
			if tt.aggErr != nil {
				var jerr Jerror
				if err := json.Unmarshal(recorder.Body.Bytes(), &jerr); err != nil || jerr.Msg == "" {
					t.Fatalf("expected JSON error body, got %s", recorder.Body.String())
				}
			}
		})
	}
}

func TestSplitNamespace(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"/", 0},
		{"Supervisor", 1},
		{"Supervisor/Uploader/", 2},
		{"Supervisor//Uploader", 2},
	}
	for _, tt := range tests {
		if got := splitNamespace(tt.raw); len(got) != tt.want {
			t.Fatalf("%q: expected %d parts, got %v", tt.raw, tt.want, got)
		}
	}
}
