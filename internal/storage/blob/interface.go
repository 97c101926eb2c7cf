// Package blob provides key/value object storage on local disk or S3-compatible
// backends. Watchlist documents are stored one object per entry.
package blob

import "context"

// Storage defines the interface for object storage backends
type Storage interface {
	// Create stores data at path only if nothing exists there yet.
	// It returns core.ErrAlreadyExists when the path is taken.
	Create(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path; core.ErrNotFound if missing
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path; core.ErrNotFound if missing
	Delete(ctx context.Context, path string) error
}
