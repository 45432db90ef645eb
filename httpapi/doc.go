// Package httpapi exposes the service over HTTP: supplier callbacks, the
// internal job preparation endpoint, the pull fallback and usage queries.
package httpapi
