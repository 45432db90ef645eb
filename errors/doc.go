// Package errors provides the service-wide AppError type: a machine-readable
// code, an HTTP status, a retryable flag and optional details.
//
// Handlers render any error through AppError.ToResponse so webhook callers and
// API clients always receive {"error": {...}} with a definite status.
package errors
