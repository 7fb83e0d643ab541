package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Default lookback when no start time is given
const defaultWindow time.Duration = 1 * time.Minute

// Reads name, namespace (from the path after prefix) and the time window.
// starttime accepts RFC3339 or a duration relative to now (-5m). endtime accepts RFC3339 or "now".
func parseQuery(clientRequest *http.Request, prefix string, now time.Time) (req query, err error) {
	req.name = clientRequest.FormValue("name")
	req.namespace = splitNamespace(strings.TrimPrefix(clientRequest.URL.Path, prefix))

	rawStart := clientRequest.FormValue("starttime")
	switch {
	case rawStart == "":
		req.start = now.Add(-defaultWindow)
	case rawStart[0] == '-' || rawStart[0] == '+':
		offset, parseErr := time.ParseDuration(rawStart)
		if parseErr != nil {
			req.start = now.Add(-defaultWindow)
		} else {
			req.start = now.Add(offset)
		}
	default:
		req.start, err = time.Parse(time.RFC3339Nano, rawStart)
		if err != nil {
			err = fmt.Errorf("invalid starttime %q: %w", rawStart, err)
			return
		}
	}

	rawEnd := clientRequest.FormValue("endtime")
	if rawEnd == "" || rawEnd == "now" {
		req.end = now
	} else {
		req.end, err = time.Parse(time.RFC3339Nano, rawEnd)
		if err != nil {
			err = fmt.Errorf("invalid endtime %q: %w", rawEnd, err)
			return
		}
	}

	if req.start.After(req.end) {
		err = fmt.Errorf("starttime %s is after endtime %s", req.start.Format(time.RFC3339), req.end.Format(time.RFC3339))
	}
	return
}

// "Supervisor/Uploader/" -> [Supervisor Uploader]; empty path means all namespaces
func splitNamespace(raw string) (namespace []string) {
	for part := range strings.SplitSeq(raw, "/") {
		if part != "" {
			namespace = append(namespace, part)
		}
	}
	return
}
