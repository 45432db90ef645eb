package storage

import (
	"context"
	"errors"
	"io"

	"github.com/kbukum/scribe/provider"
)

// ErrNotFound is returned by Open for a missing key.
var ErrNotFound = errors.New("storage: object not found")

// Object is one upload.
type Object struct {
	Key         string
	Body        io.Reader
	ContentType string
}

// Storage keeps processed audio where suppliers can fetch it by URL.
// IsAvailable checks the backend for the health report.
type Storage interface {
	provider.Provider

	Put(ctx context.Context, obj Object) error
	// Open returns the object body; the caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Has(ctx context.Context, key string) (bool, error)
	// Remove is a no-op for a missing key.
	Remove(ctx context.Context, key string) error
	URL(key string) string
}
