// Package supplier selects and calls the external speech-recognition
// services.
//
// Resolve is the pure routing decision between the speed-optimized "fast"
// supplier and the accuracy-optimized "accurate" one. Signer produces and
// checks the HMAC tokens carried on callback URLs and in supplier signature
// headers. Concrete suppliers live in subpackages and register a factory
// with Register from init:
//
//	import _ "github.com/kbukum/scribe/supplier/fast"
//
//	set, err := supplier.Build(cfgs, log)
package supplier
