// Package logger is scribe's structured logging on zerolog.
//
// Build one logger at startup, pass it into constructors and narrow it per
// component; request scoped ids come from the context:
//
//	log := logger.Init(&cfg.Logging).WithComponent("dispatch")
//	log.WithContext(ctx).Info("Job dispatched", logger.Fields(logger.FieldJobID, id))
//
// With output "file" lines go through a rotating lumberjack writer.
package logger
