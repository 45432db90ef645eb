package provider

import "context"

// Provider is the base interface every backend implements.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can take work right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from its dependencies.
type Factory[T Provider, D any] func(deps D) (T, error)
