// Package dataset provides append-only result storage for crawl outputs.
package dataset

// Dataset is an append-only record sink. Records are JSON-encoded in the
// order they are pushed and never rewritten.
type Dataset interface {
	// Append encodes and stores one record.
	Append(v interface{}) error

	// Len returns the number of stored records.
	Len() (int, error)

	// Close flushes and releases resources.
	Close() error
}
