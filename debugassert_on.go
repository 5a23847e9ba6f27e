//go:build debug

package x11c

import "fmt"

// debugAssertNoCollision panics if a pending-request insert collides with
// an existing entry at the same sequence, per spec.md §5: "a debug-build
// assertion fires if two pending entries collide on the same sequence
// (ring-buffer overflow of the 16-bit counter with >65k concurrent
// in-flight requests)".
func debugAssertNoCollision(exists bool, sequence uint16) {
	if exists {
		panic(fmt.Sprintf("x11c: pending-request collision at sequence %d (>65536 requests in flight?)", sequence))
	}
}
