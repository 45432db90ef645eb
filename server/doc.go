// Package server runs the gin engine behind an h2c handler and exposes it
// as a component.Component.
//
// Middleware (server/middleware) covers recovery, request ids, request
// logging, bearer authentication with role checks and per-key rate limits.
// server/endpoint provides the aggregated /health handler.
package server
