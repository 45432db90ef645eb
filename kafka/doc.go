// Package kafka holds the shared Kafka config, connection helpers and the
// event envelope. Subpackage producer publishes job lifecycle events and
// subpackage consumer reads minute-pack grants.
package kafka
