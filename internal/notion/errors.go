package notion

import (
	"errors"
	"fmt"
)

// Request errors.
var (
	// ErrInvalidRequest is returned when a request cannot be built from local
	// input: an empty or non-ASCII token, a malformed base URL or object id.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidResponse is returned for a non-success status, a body that
	// fails to decode, or a 429 without a usable Retry-After header.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrRequestFailed is returned when the HTTP round trip itself fails.
	ErrRequestFailed = errors.New("request failed")
)

// ThrottledError is returned for HTTP 429 responses.
// The request may be sent again once RetryAfter seconds have passed.
type ThrottledError struct {
	// RetryAfter is the cool-down from the Retry-After header, in seconds.
	RetryAfter uint64

	// URL is the throttled request URL.
	URL string
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled, retry after %ds: %s", e.RetryAfter, e.URL)
}

// ResponseError describes a non-success HTTP response.
// It matches ErrInvalidResponse with errors.Is.
type ResponseError struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Code and Message come from the API's error object when the body
	// contains one, e.g. "object_not_found".
	Code    string
	Message string

	// Body is the raw response body, truncated.
	Body string

	URL string
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("invalid response: status %d (%s: %s) from %s", e.StatusCode, e.Code, e.Message, e.URL)
	}
	return fmt.Sprintf("invalid response: status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Unwrap makes errors.Is(err, ErrInvalidResponse) hold.
func (e *ResponseError) Unwrap() error {
	return ErrInvalidResponse
}
