package store

import (
	"context"
	"errors"
)

// Store is the read side of the zone configuration store. Keys are the
// domain strings zones are published under.
type Store interface {
	// Get retrieves the serialized zone record for key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close releases what the store itself owns. Shared clients and pools
	// are closed by whoever registered them for shutdown.
	Close() error
}

// ReadWriter is implemented by backends the publishing tools can write to
type ReadWriter interface {
	Store

	// Put stores the serialized zone record for key
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the record for key
	Delete(ctx context.Context, key string) error

	// Keys returns all keys matching the wildcard pattern ("*" for all keys)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// ErrNotFound is returned when no record exists for a key
var ErrNotFound = errors.New("zone record not found")

// Error represents a failed store operation
type Error struct {
	Op      string // Operation that failed
	Backend string // Backend name (memory, redis, postgres)
	Key     string // Key involved, if any
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Backend + " " + e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	return msg + " failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
