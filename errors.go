package x11c

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the conditions spec.md §7 calls out that are not
// themselves data-bearing.
var (
	// ErrClosedConnection is returned when a 32-byte all-zero frame is
	// read where an error or reply was expected: the server has hung up.
	ErrClosedConnection = errors.New("x11c: connection closed by server")

	// ErrNoXID is returned by the XID allocator once its sub-range is
	// exhausted.
	ErrNoXID = errors.New("x11c: no more XIDs available")

	// ErrSpecialEventNotRegistered is returned by GetSpecialEvent for an
	// XID with no registered special queue. Spec.md §9(b): the source
	// this was distilled from panics here; this is a deliberate API
	// smoothing, not a bug fix of observed behavior.
	ErrSpecialEventNotRegistered = errors.New("x11c: no special event queue registered for this XID")

	// errShortWrite is wrapped into Io errors by the transport when a
	// write consumes zero bytes without an underlying error.
	errShortWrite = errors.New("x11c: short write")
)

// NoMatchingRequestError is returned when a reply or error arrives for a
// sequence number with no corresponding pending request.
type NoMatchingRequestError struct {
	Sequence uint16
}

func (e *NoMatchingRequestError) Error() string {
	return fmt.Sprintf("x11c: no matching request for sequence %d", e.Sequence)
}

// ExtensionNotPresentError is returned when QueryExtension reports that
// the named extension is not present on the server.
type ExtensionNotPresentError struct {
	Name string
}

func (e *ExtensionNotPresentError) Error() string {
	return fmt.Sprintf("x11c: extension %q not present", e.Name)
}

// XError is a parsed server error (wire message type 0).
type XError struct {
	Code     uint8
	Sequence uint16
	Major    uint8
	Minor    uint16
	Resource uint32
}

func (e *XError) Error() string {
	return fmt.Sprintf("x11c: X error %d (major=%d minor=%d) on sequence %d resource 0x%x",
		e.Code, e.Major, e.Minor, e.Sequence, e.Resource)
}

// parseXError decodes a 32-byte error message per spec.md §6: byte 0 is
// 0, byte 1 is the error code, bytes 2..4 the sequence, bytes 4..8 a
// resource id / extra data word, bytes 8..10 the minor opcode and byte 10
// the major opcode — the core only needs the
// fields it routes on and reports; full per-error-type decoding is a
// generator concern (see request.go).
func parseXError(buf []byte) *XError {
	return &XError{
		Code:     buf[1],
		Sequence: byteOrder.Uint16(buf[2:4]),
		Resource: byteOrder.Uint32(buf[4:8]),
		Minor:    byteOrder.Uint16(buf[8:10]),
		Major:    buf[10],
	}
}

// wrapIO tags a transport-level failure with a stack trace attached at
// the point of first observation, so later callers logging the error can
// see where the pipe broke.
func wrapIO(err error, what string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "x11c: %s", what)
}
