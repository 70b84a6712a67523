// Package errors provides the delivery error taxonomy and retry strategy
// for the tracking SDK.
//
// Delivery failures fall into two buckets:
//   - Transient: retry will likely help (timeouts, 5xx, rate limits)
//   - Permanent: retry won't help (4xx rejections, bad configuration)
//
// The transmitter retries transient failures with exponential backoff and
// spools what still cannot be delivered.
package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Category represents how a delivery error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: timeouts, connection resets, 5xx responses, 429.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: 4xx rejections, malformed endpoint configuration.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// DeliveryError represents a failed delivery attempt against the
// collection endpoint.
type DeliveryError struct {
	// StatusCode is the HTTP status, 0 for transport-level failures.
	StatusCode int

	// Endpoint is the URL the delivery targeted.
	Endpoint string

	// Message describes the failure.
	Message string

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery failed: HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("delivery failed at %s: %s", e.Endpoint, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying this delivery may succeed.
// Rate limiting and server-side errors are retryable; other HTTP
// rejections are not. Transport-level failures are retryable.
func (e *DeliveryError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// Categorize classifies an error for retry handling.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var de *DeliveryError
	if errors.As(err, &de) {
		if de.Retryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}

	// Unknown errors are treated as transient; the retry budget bounds
	// the damage if they turn out not to be.
	return CategoryTransient
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// ErrQueueFull is returned when the transmitter's ingest queue is at
// capacity and a task is dropped.
var ErrQueueFull = errors.New("transmitter queue full")

// ErrClosed is returned when an operation is attempted on a closed
// transmitter or store.
var ErrClosed = errors.New("transmitter closed")
