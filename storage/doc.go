// Package storage is where processed audio lives. Backends register with
// the provider registry from init, so the binary imports the ones it needs:
//
//	import _ "github.com/kbukum/scribe/storage/s3"
//
//	store, err := storage.New(ctx, cfg.Storage, log)
package storage
