// Package x11c implements the request/reply multiplexing core of an X11
// protocol client: framing, sequence numbers, the pending-request table,
// event routing, XID allocation, and on-demand extension opcode lookup.
//
// It does not parse the X11 setup handshake, generate typed request/reply
// structs, or render anything; see the generator contract in request.go
// for what a code generator is expected to produce.
package x11c

const (
	// msgTypeError and msgTypeReply are the tag values found at byte 0 of
	// every inbound message. Anything else is an event.
	msgTypeError = 0
	msgTypeReply = 1

	// xgeEventCode is the low 7 bits of byte 0 for an X Generic Event.
	// The top bit marks a "synthetic" (client-sent) event and must be
	// masked off before comparing.
	xgeEventCode  = 35
	syntheticMask = 0x7f

	// headerLen is the fixed size of every inbound message before any
	// additional bytes indicated by the length field are appended.
	headerLen = 32

	// extensionNameSize is the fixed, zero-padded width of an extension
	// cache key.
	extensionNameSize = 24

	// glxExtensionName is the only extension with a built-in wire
	// workaround; additional extensions may be registered via
	// workarounds.go's YAML-configurable table.
	glxExtensionName = "GLX"

	// glxGetFBConfigsOpcode and glxVendorPrivateOpcode are the two GLX
	// request opcodes that trigger the reply-length workaround. Opcode
	// 21 always triggers it; opcode 17 triggers it only when the word at
	// byte offset 32 of the encoded request equals glxFBConfigsMagic.
	glxGetFBConfigsOpcode = 17
	glxVendorPrivateOpcode = 21
	glxFBConfigsMagic      = 0x10004
)

// byteOrder is the wire byte order for every length and sequence field
// this package touches. X11 supports either order at setup time, but the
// core multiplexer only needs to read back what it itself wrote, so it
// fixes little-endian as the convention used consistently below.
var byteOrder = littleEndian{}

type littleEndian struct{}

func (littleEndian) Uint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func (littleEndian) PutUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func (littleEndian) Uint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (littleEndian) PutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
