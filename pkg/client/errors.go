package client

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx upstream errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx upstream errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassCancelled represents context cancellation before admission.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// APIError is a transport failure: a non-2xx response from the upstream API.
// Its message is the raw response body, which is what transit.land uses to
// describe the failure.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transit API error (status %d)", e.StatusCode)
	}
	return e.Body
}

// IsAPIError reports whether err (or anything it wraps) is an upstream
// transport failure, and returns it if so.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
