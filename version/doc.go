// Package version reports the build of the running binary. Version and
// GitCommit are set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/scribe/version.Version=1.4.0" ./cmd/scribe
//
// Without them the VCS stamp recorded by the Go toolchain is used.
package version
