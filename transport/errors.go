package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when a 401 could not be recovered because
	// the refresh failed. The session has been terminated.
	ErrSessionExpired = errors.New("transport: session expired")
	// ErrRefreshRejected is returned when the refresh endpoint itself answered
	// 401. The session has been terminated.
	ErrRefreshRejected = errors.New("transport: refresh rejected")
)

// RequestError describes a request the pipeline could not complete.
type RequestError struct {
	Op  string
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
