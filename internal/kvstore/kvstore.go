// Package kvstore provides the durable key/value slots backing promptbox.
package kvstore

import "context"

// Store is a persistent string-keyed byte store.
// Consumers should depend on this interface rather than the concrete *SQLite type.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key in lexical order.
	Keys(ctx context.Context) ([]string, error)
	// Usage returns the total bytes held, as counted against the quota.
	Usage(ctx context.Context) (int64, error)
	Close() error
}

// Verify *SQLite satisfies Store at compile time.
var _ Store = (*SQLite)(nil)
