package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/genai"
)

// HTTPStatusError reports a non-2xx response from an upstream API.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// HTTPStatusCode extracts the status code from err, or 0 when err is not an
// HTTPStatusError.
func HTTPStatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// NotFoundError means the upstream had no data for the requested thing
// (unknown city, delisted symbol). Retrying will not help.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err looks like a temporary upstream failure
// worth retrying: 5xx responses, rate limits, and network timeouts.
// Client errors, parse errors, and not-found stay terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsNotFound(err) {
		return false
	}
	if code := HTTPStatusCode(err); code != 0 {
		return code == 429 || code >= 500
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
