// Package queue is the pull-mode fallback for webhook delivery.
//
// Every accepted submission leaves an Entry behind. A client that never
// received a callback can ask the service to process one of its entries:
// the Worker claims it, polls the supplier and, once the result is ready,
// runs it through the same ingestion pipeline a webhook would. The Sweeper
// returns abandoned claims to the pool on a cron schedule.
package queue
