// Package storage defines the persistence boundary the scheduler depends
// on: a single-key blob store, backed by whichever adapter the deployment
// wires in (redisstore or pgstore).
package storage

import "context"

// Store is the minimal persistence contract the scheduler needs: load the
// one snapshot blob, save it, and optionally clear it. Every adapter is
// responsible for its own connection management; adapters do not retry,
// the scheduler retries a failed Set with backoff.
type Store interface {
	// Get returns the stored blob and true, or (nil, false, nil) if no
	// blob has ever been written under this key.
	Get(ctx context.Context) ([]byte, bool, error)

	// Set overwrites the stored blob.
	Set(ctx context.Context, data []byte) error

	// Remove deletes the stored blob, if any.
	Remove(ctx context.Context) error
}
