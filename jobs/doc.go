// Package jobs holds the transcription job lifecycle: the Job and Result
// models, the status machine and the gorm-backed Store.
//
// Every status change is a conditional update that refuses to move a job out
// of a terminal state (completed, failed, cancelled), so concurrent webhook
// deliveries and dispatch settlement cannot overwrite each other's outcome.
package jobs
