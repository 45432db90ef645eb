// Package ingest applies supplier completions to jobs.
//
// A completion arrives either as a webhook (HandleCallback) or from the
// pull queue (Ingest). Both run the same pipeline: take the ingestion
// lease, decode and normalize the payload, render every output format,
// finalize the job and settle usage. The lease is the only guard against
// redelivery; a duplicate that finds the job completed, or the lease held,
// is acknowledged without doing any work.
package ingest
