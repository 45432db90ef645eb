// Package component gives scribe's infrastructure a common lifecycle.
// The Registry owns start and stop ordering and feeds GET /health.
package component
