// Package version reports the build version of a service.
//
// Version and Commit are set at compile time via -ldflags; otherwise the VCS
// stamp the toolchain embeds is used:
//
//	go build -ldflags "-X github.com/kbukum/diconfig/version.Version=1.0.0"
package version
