package x11c

// Request is the interface a code generator is contractually required to
// produce for every X11 request type (spec.md §6 "Generator contract").
// The generator itself, and the per-request convenience wrappers built on
// top of it, are out of scope (spec.md §1); this package only consumes
// the interface.
type Request interface {
	// Opcode is the request's core opcode, or its extension minor opcode
	// when Extension() is non-empty.
	Opcode() uint8

	// Extension names the owning extension, or "" for a core request.
	Extension() string

	// Size is a hint for the buffer the encoder should allocate before
	// calling AsBytes; AsBytes's returned length is authoritative.
	Size() int

	// AsBytes serializes the request into buf (which is at least Size()
	// bytes) and returns the number of bytes actually written.
	AsBytes(buf []byte) int

	// FileDescriptors returns any file descriptors that must accompany
	// this request on the wire, or nil.
	FileDescriptors() []int

	// ReplySize is the fixed size of this request's reply type, or 0 if
	// the request has no reply.
	ReplySize() int

	// ReplyExpectsFDs reports whether this request's reply carries
	// ancillary file descriptors (spec.md §4.4 expects_fds flag).
	ReplyExpectsFDs() bool
}

// Workaround identifies a documented server wire-protocol quirk the
// encoder or dispatcher must compensate for (spec.md §4.4 step 6, §4.5
// step 2).
type Workaround int

const (
	WorkaroundNone Workaround = iota
	// WorkaroundGlxFBConfigBug patches a documented GLX server bug that
	// under-reports certain reply lengths by a factor of two.
	WorkaroundGlxFBConfigBug
)

// PendingRequest is the metadata recorded for an in-flight request between
// send and the reply/error arriving (spec.md §3 "PendingRequest").
type PendingRequest struct {
	Sequence     uint16
	ExpectsFDs   bool
	DiscardReply bool
	Checked      bool
	Workaround   Workaround
}

// RequestCookie is the opaque handle SendRequest returns, redeemable at a
// later ReplyFor for the matching reply (spec.md glossary "Cookie"). The
// reply's bytes are decoded with the Decode*Reply function matching the
// request type that produced the cookie (e.g. DecodeGetInputFocusReply).
type RequestCookie struct {
	sequence uint16
}

// Sequence returns the request's sequence number.
func (c RequestCookie) Sequence() uint16 { return c.sequence }

// PendingReply is a reply's raw bytes plus any file descriptors that
// arrived alongside it, keyed by sequence in the pending-reply table.
type PendingReply struct {
	Bytes []byte
	FDs   []int
}

// PendingError is a parsed server error keyed by sequence in the
// pending-error table.
type PendingError struct {
	Err *XError
}

// --- Illustrative generator output (SPEC_FULL.md §4) ---
//
// The two types below are what a generator would emit; they exist only so
// the encoder/dispatcher round trip (spec.md §8 "Round-trip laws") has a
// concrete, testable instance without pulling in the XML-to-Go code
// generator that spec.md §1 places out of scope.

// GetInputFocus is a core, no-argument request with a fixed-size reply.
// It mirrors the X11 core protocol's actual GetInputFocus (opcode 43).
type GetInputFocus struct{}

func (GetInputFocus) Opcode() uint8          { return 43 }
func (GetInputFocus) Extension() string      { return "" }
func (GetInputFocus) Size() int              { return 4 }
func (GetInputFocus) AsBytes(buf []byte) int { return 4 }
func (GetInputFocus) FileDescriptors() []int { return nil }
func (GetInputFocus) ReplySize() int         { return 32 }
func (GetInputFocus) ReplyExpectsFDs() bool  { return false }

// GetInputFocusReply is GetInputFocus's decoded reply.
type GetInputFocusReply struct {
	RevertTo uint8
	Focus    uint32
}

// DecodeGetInputFocusReply decodes a raw reply buffer (as stored in
// PendingReply.Bytes) into GetInputFocusReply.
func DecodeGetInputFocusReply(buf []byte) GetInputFocusReply {
	return GetInputFocusReply{
		RevertTo: buf[1],
		Focus:    byteOrder.Uint32(buf[8:12]),
	}
}

// QueryExtension is the request the extension cache issues internally to
// resolve a major opcode (spec.md §4.3); it mirrors the X11 core
// protocol's actual QueryExtension (opcode 98).
type QueryExtension struct {
	Name string
}

func (QueryExtension) Opcode() uint8     { return 98 }
func (QueryExtension) Extension() string { return "" }
func (q QueryExtension) Size() int       { return 8 + pad4(len(q.Name)) }

func (q QueryExtension) AsBytes(buf []byte) int {
	byteOrder.PutUint16(buf[4:6], uint16(len(q.Name)))
	n := copy(buf[8:], q.Name)
	return 8 + n
}

func (QueryExtension) FileDescriptors() []int { return nil }
func (QueryExtension) ReplySize() int         { return 32 }
func (QueryExtension) ReplyExpectsFDs() bool  { return false }

// QueryExtensionReply is QueryExtension's decoded reply.
type QueryExtensionReply struct {
	Present     bool
	MajorOpcode uint8
	FirstEvent  uint8
	FirstError  uint8
}

// DecodeQueryExtensionReply decodes a raw reply buffer into
// QueryExtensionReply.
func DecodeQueryExtensionReply(buf []byte) QueryExtensionReply {
	return QueryExtensionReply{
		Present:     buf[8] != 0,
		MajorOpcode: buf[9],
		FirstEvent:  buf[10],
		FirstError:  buf[11],
	}
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
