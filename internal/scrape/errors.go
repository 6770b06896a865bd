package scrape

import (
	"fmt"
)

// ErrorType categorizes a static document fetch failure.
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected upstream (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeParse indicates the document arrived but could not be parsed
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError is a structured error from a static document fetch.
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	URL        string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error fetching %s (status %d)", e.Type, e.URL, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error fetching %s: %v", e.Type, e.URL, e.Cause)
	}
	return fmt.Sprintf("%s error fetching %s", e.Type, e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// classifyStatus maps a non-success HTTP status to a FetchError.
func classifyStatus(url string, statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return &FetchError{Type: ErrorTypeRateLimit, Retryable: true, StatusCode: statusCode, URL: url}
	case statusCode >= 500:
		return &FetchError{Type: ErrorTypeServer, Retryable: true, StatusCode: statusCode, URL: url}
	case statusCode >= 400:
		return &FetchError{Type: ErrorTypeClient, Retryable: false, StatusCode: statusCode, URL: url}
	default:
		return &FetchError{Type: ErrorTypeUnknown, Retryable: false, StatusCode: statusCode, URL: url}
	}
}
