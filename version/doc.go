// Package version reports the build's version for logs and the client's
// User-Agent.
//
// Version and GitCommit can be set at link time:
//
//	go build -ldflags "-X github.com/kbukum/reqkit/version.Version=1.0.0"
package version
