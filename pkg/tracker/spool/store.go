// Package spool provides durable storage for delivery batches that
// exhausted their retry budget. The transmitter replays spooled batches,
// oldest first, on later flush ticks.
package spool

import "errors"

// Store persists encoded batches awaiting redelivery.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores an encoded batch and returns its assigned id.
	Save(data []byte) (int64, error)

	// Next returns the oldest stored batch.
	// Returns ErrEmpty if nothing is spooled.
	Next() (int64, []byte, error)

	// Delete removes a batch after successful redelivery.
	// Returns nil if the batch doesn't exist.
	Delete(id int64) error

	// Len returns the number of spooled batches.
	Len() (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for spool operations.
var (
	// ErrEmpty indicates the spool holds no batches.
	ErrEmpty = errors.New("spool empty")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("spool store closed")
)
