//go:build !debug

package x11c

// debugAssertNoCollision is a no-op in release builds; see
// debugassert_on.go. Release builds rely on reply-matching to surface a
// NoMatchingRequestError instead, per spec.md §9.
func debugAssertNoCollision(exists bool, sequence uint16) {}
