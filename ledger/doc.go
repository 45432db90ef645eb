// Package ledger meters transcription usage against a user's funding
// sources: the monthly subscription allowance of paid plans and purchased
// minute packs. Every charge is written as an append-only UsageRecord.
//
// Pack balances are only ever changed by a single conditional decrement
// (minutes_left = minutes_left - d WHERE minutes_left >= d). A lost race
// re-reads the pack instead of overdrawing it.
package ledger
