package mediaapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies API failures.
type Category int

const (
	CategoryNone Category = iota
	// CategoryTransport covers failures to reach the server at all.
	CategoryTransport
	// CategoryStatus covers non-success responses below 500.
	CategoryStatus
	// CategoryServer covers 5xx responses. During upload these mean the
	// server failed to record the media, usually in its database.
	CategoryServer
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryTransport:
		return "transport"
	case CategoryStatus:
		return "status"
	case CategoryServer:
		return "server"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// TransportError is returned when a request never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// ServerError reports whether the status is in the 5xx range.
func (e *StatusError) ServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// CategoryOf classifies err.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.ServerError() {
			return CategoryServer
		}
		return CategoryStatus
	}
	return CategoryTransport
}

// IsServerError reports whether err is a 5xx response.
func IsServerError(err error) bool {
	return CategoryOf(err) == CategoryServer
}
