package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a failed backend call.
type Kind string

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindValidation means the server rejected the request (4xx).
	KindValidation Kind = "validation"
	// KindServer means the server failed (5xx).
	KindServer Kind = "server"
	// KindCanceled means the caller gave up.
	KindCanceled Kind = "canceled"
	KindUnknown  Kind = "unknown"
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// ErrEmptyResponse is returned when a call that expects an entity gets a
// successful response without a body.
var ErrEmptyResponse = errors.New("empty response body")

// transportError is a request that got no response while the caller was
// still waiting for one. Client timeouts land here, not in KindCanceled.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Classify returns the failure kind of err.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= 500 {
			return KindServer
		}
		return KindValidation
	}
	var te *transportError
	if errors.As(err, &te) {
		return KindNetwork
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return KindNetwork
	}
	return KindUnknown
}

// Retryable reports whether repeating the request could succeed.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}

// Message returns the text to show a user for a failed call.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	switch Classify(err) {
	case KindNetwork:
		return "The server could not be reached. Check your connection and try again."
	case KindServer:
		return "The server failed to process the request. Try again shortly."
	case KindValidation:
		return "The server rejected the change."
	case KindCanceled:
		return "The request was canceled."
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
