// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"time"
)

// ObjectStorage is the interface for resolving, granting, and removing objects.
type ObjectStorage interface {
	// PresignGet returns a time-limited retrieval URL for the object at key.
	// The URL stops working once expiry elapses.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PresignPut returns a time-limited URL authorizing a single upload to key.
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
}
