package uploader

import (
	"context"
	"errors"
	"net/http"
)

// Sinks wrap one of these with %w to classify a delivery failure
var (
	Transient  = errors.New("transient delivery failure")
	Rejected   = errors.New("payload rejected by endpoint")
	AuthFailed = errors.New("endpoint refused credentials")
)

type class int

const (
	classTransient class = iota
	classRejected
	classAuth
)

// Unclassified errors are treated as transient
func classify(err error) class {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return classTransient
	case errors.Is(err, AuthFailed):
		return classAuth
	case errors.Is(err, Rejected):
		return classRejected
	}
	return classTransient
}

// Error class for a non-2xx HTTP status, shared by the HTTP based sinks
func ClassifyHTTPStatus(status int) (class error) {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooEarly, status == http.StatusTooManyRequests:
		class = Transient
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		class = AuthFailed
	case status >= 500:
		class = Transient
	case status >= 400:
		class = Rejected
	default:
		// 1xx/3xx left unresolved by the client
		class = Transient
	}
	return
}
