// Package security builds TLS client configurations for the Kafka and Redis
// connections from file-based settings.
package security
