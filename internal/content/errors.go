package content

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned for URL-shaped input that does not parse.
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrEmptyExtraction is returned when a fetched page has no speakable text.
	ErrEmptyExtraction = errors.New("no readable text found")
)

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}

// NetworkError wraps transport failures: timeouts, DNS, refused or reset
// connections.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParsingError reports undecodable bytes or failed HTML processing.
type ParsingError struct {
	Detail string
	Err    error
}

func (e *ParsingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("parsing error: %s", e.Detail)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}
