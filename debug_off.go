//go:build !debug

package x11c

// debug is a no-op unless built with -tags debug; see debug_on.go.
func debug(format string, args ...interface{}) {}
