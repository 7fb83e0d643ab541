// HTTP server exposing the metric registry to programs on the local system
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
	"santasleigh/internal/metrics"
	"strings"
	"time"
)

// Sets up HTTP listener configuration for metric querying
func SetupListener(ctx context.Context, address string, registry Querier) (server *http.Server) {
	requestMultiplexer := http.NewServeMux()

	// Root index of available endpoints
	requestMultiplexer.HandleFunc("/", func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if clientRequest.URL.Path != "/" {
			serverResponder.WriteHeader(http.StatusNotFound)
			return
		}
		jResp(ctx, serverResponder, http.StatusOK, map[string]string{
			"program":           global.ProgBaseName,
			"version":           global.ProgVersion,
			"data":              DataPath + "{namespace}?name=&starttime=&endtime=",
			"discover":          DiscoveryPath + "{namespace}?name=&type=",
			"aggregate":         AggregationPath + "{namespace}?name=&aggregation=&starttime=&endtime=",
			"aggregation types": "sum, mean, min, max, latest",
		})
	})

	requestMultiplexer.HandleFunc(DiscoveryPath, getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleDiscovery(ctx, registry, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc(DataPath, getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleData(ctx, registry, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc(AggregationPath, getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleAggregation(ctx, registry, serverResponder, clientRequest)
	}))

	server = &http.Server{
		Addr:         address,
		Handler:      requestMultiplexer,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
	}
	return
}

// Serves until the server is shut down
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Metric query server starting on http://%s/\n", server.Addr)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"Metric query server failed: %v\n", err)
	}
}

func getOnly(handler http.HandlerFunc) http.HandlerFunc {
	return func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(serverResponder, clientRequest)
	}
}

// Raw samples in the window
func handleData(ctx context.Context, registry Querier, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	req, err := parseQuery(clientRequest, DataPath, time.Now())
	if err != nil {
		jResp(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
		return
	}
	respondList(ctx, serverResponder, registry.Search(req.name, req.namespace, req.start, req.end))
}

// Newest sample of each metric, optionally filtered by type
func handleDiscovery(ctx context.Context, registry Querier, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	name := clientRequest.FormValue("name")
	namespace := splitNamespace(strings.TrimPrefix(clientRequest.URL.Path, DiscoveryPath))

	rawType := metrics.MetricType(strings.ToLower(clientRequest.FormValue("type")))
	if rawType != "" && rawType != metrics.Counter && rawType != metrics.Gauge {
		jResp(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: "type must be counter or gauge"})
		return
	}

	var found []metrics.Metric
	for _, metric := range registry.Discover(name, namespace) {
		if rawType == "" || metric.Type == rawType {
			found = append(found, metric)
		}
	}
	respondList(ctx, serverResponder, found)
}

func handleAggregation(ctx context.Context, registry Querier, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	req, err := parseQuery(clientRequest, AggregationPath, time.Now())
	if err != nil {
		jResp(ctx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
		return
	}

	result, err := registry.Aggregate(clientRequest.FormValue("aggregation"), req.name, req.namespace, req.start, req.end)
	if err != nil {
		jResp(ctx, serverResponder, http.StatusNotFound, Jerror{Msg: err.Error()})
		return
	}
	jResp(ctx, serverResponder, http.StatusOK, result.Convert())
}

func respondList(ctx context.Context, serverResponder http.ResponseWriter, found []metrics.Metric) {
	if len(found) == 0 {
		jResp(ctx, serverResponder, http.StatusNotFound, Jerror{Msg: "Search returned no results"})
		return
	}
	results := make([]metrics.JMetric, 0, len(found))
	for _, metric := range found {
		results = append(results, metric.Convert())
	}
	jResp(ctx, serverResponder, http.StatusOK, results)
}

// Encodes JSON and sends as response body
func jResp(ctx context.Context, serverResponder http.ResponseWriter, status int, content any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(content); err != nil {
		serverResponder.WriteHeader(http.StatusInternalServerError)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed marshaling metric results: %v\n", err)
		return
	}
	serverResponder.Header().Set("Content-Type", "application/json")
	serverResponder.WriteHeader(status)
	serverResponder.Write(buf.Bytes())
}

// Routes HTTP server errors to the program logger
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(logWriter.ctx, global.VerbosityStandard, global.ErrorLog,
		"%s\n", strings.TrimSpace(string(p)))
	return
}
