package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// StatusError reports a non-success HTTP status from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s error: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// GatewayError is returned once a request is given up on.
type GatewayError struct {
	Op        string
	Attempts  int
	Permanent bool
	Err       error
}

func (e *GatewayError) Error() string {
	kind := "failed"
	if e.Permanent {
		kind = "rejected"
	}
	return fmt.Sprintf("%s %s after %d attempt(s): %v", e.Op, kind, e.Attempts, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, rate limiting and server errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return !gwErr.Permanent
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
