// Package redis wraps go-redis with scribe logging and a lifecycle
// Component. TypedStore keeps JSON values under a key prefix; the audio
// reuse cache uses it as its shared tier.
package redis
