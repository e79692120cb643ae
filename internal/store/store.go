// Package store provides key/value persistence backends for queue state.
package store

// Store defines the interface for durable key/value storage. The frontier
// treats it as an opaque store: Get returns (nil, nil) for an absent key so
// callers can distinguish "start fresh" from corruption.
type Store interface {
	// Get returns the value for key, or (nil, nil) if absent.
	Get(key string) ([]byte, error)

	// Set durably stores value under key.
	Set(key string, value []byte) error

	// Close releases resources.
	Close() error
}
