package x11c

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeRequest_CoreNoExtension is spec.md §8 scenario 1's exact byte
// sequence: opcode 20, no extension, empty body encodes to [20, 0, 1, 0].
func TestEncodeRequest_CoreNoExtension(t *testing.T) {
	req := plainRequest{opcode: 20}
	enc := encodeRequest(req, nil, false, false, NewWorkaroundTable(), 0)

	assert.Equal(t, []byte{20, 0, 1, 0}, enc.bytes)
	assert.False(t, enc.hasPending, "a request with no reply and checked=false must not get a pending entry")
}

// TestEncodeRequest_ZeroLengthBodyStillEncodesOneUnit covers the
// zero-length-reply boundary: a generator whose AsBytes reports 0 bytes
// written still produces exactly one 4-byte header unit.
func TestEncodeRequest_ZeroLengthBodyStillEncodesOneUnit(t *testing.T) {
	req := zeroBytesRequest{opcode: 55}
	enc := encodeRequest(req, nil, false, false, NewWorkaroundTable(), 0)

	require.Len(t, enc.bytes, 4)
	assert.Equal(t, uint8(55), enc.bytes[0])
	assert.Equal(t, uint16(1), byteOrder.Uint16(enc.bytes[2:4]))
}

type zeroBytesRequest struct {
	opcode uint8
}

func (r zeroBytesRequest) Opcode() uint8          { return r.opcode }
func (zeroBytesRequest) Extension() string        { return "" }
func (zeroBytesRequest) Size() int                { return 0 }
func (zeroBytesRequest) AsBytes(buf []byte) int   { return 0 }
func (zeroBytesRequest) FileDescriptors() []int   { return nil }
func (zeroBytesRequest) ReplySize() int           { return 0 }
func (zeroBytesRequest) ReplyExpectsFDs() bool    { return false }

// TestEncodeRequest_ExtensionOpcodeGoesInFirstTwoBytes covers the header
// layout for an extension request: byte 0 is the major opcode, byte 1 the
// extension's minor opcode.
func TestEncodeRequest_ExtensionOpcodeGoesInFirstTwoBytes(t *testing.T) {
	req := plainRequest{opcode: 7, extension: "BIG-REQUESTS"}
	major := uint8(133)
	enc := encodeRequest(req, &major, false, false, NewWorkaroundTable(), 3)

	assert.Equal(t, uint8(133), enc.bytes[0])
	assert.Equal(t, uint8(7), enc.bytes[1])
}

// TestEncodeRequest_PaddingRoundsUpToMultipleOf4 covers spec.md §4.4's
// padding step for a body whose length isn't already a multiple of 4.
func TestEncodeRequest_PaddingRoundsUpToMultipleOf4(t *testing.T) {
	req := plainRequest{opcode: 1, body: []byte{1, 2, 3}}
	enc := encodeRequest(req, nil, false, false, NewWorkaroundTable(), 0)

	assert.Equal(t, 8, len(enc.bytes)) // 4-byte header + 3 body bytes padded to 4
	assert.Equal(t, uint16(2), byteOrder.Uint16(enc.bytes[2:4]))
}

// TestEncodeRequest_CheckedWithNoReplyStillGetsPendingEntry is spec.md §7:
// a request with no reply, sent in checked mode, still records a pending
// entry so a later error can be matched to it.
func TestEncodeRequest_CheckedWithNoReplyStillGetsPendingEntry(t *testing.T) {
	req := plainRequest{opcode: 1, replySize: 0}
	enc := encodeRequest(req, nil, false, true, NewWorkaroundTable(), 9)

	require.True(t, enc.hasPending)
	assert.True(t, enc.pending.Checked)
}

// TestEncodeRequest_GLXVendorPrivateAlwaysGetsWorkaround covers the
// unconditional half of spec.md §4.4 step 6's GLX rule: opcode 21 under the
// GLX extension always carries the length-bug workaround marker.
func TestEncodeRequest_GLXVendorPrivateAlwaysGetsWorkaround(t *testing.T) {
	req := plainRequest{opcode: glxVendorPrivateOpcode, extension: "GLX", replySize: 32}
	enc := encodeRequest(req, nil, false, false, NewWorkaroundTable(), 0)

	assert.Equal(t, WorkaroundGlxFBConfigBug, enc.pending.Workaround)
}

// TestEncodeRequest_GLXGetFBConfigsOnlyWithTriggerWord covers the
// conditional half: opcode 17 only carries the workaround when the trigger
// word at offset 32 matches.
func TestEncodeRequest_GLXGetFBConfigsOnlyWithTriggerWord(t *testing.T) {
	// TriggerOffset 32 is measured from the start of the whole encoded
	// request (header included), so it lands at body offset 28.
	body := make([]byte, 36)
	byteOrder.PutUint32(body[28:32], glxFBConfigsMagic)
	req := plainRequest{opcode: glxGetFBConfigsOpcode, extension: "GLX", body: body, replySize: 32}
	enc := encodeRequest(req, nil, false, false, NewWorkaroundTable(), 0)
	assert.Equal(t, WorkaroundGlxFBConfigBug, enc.pending.Workaround)

	body2 := make([]byte, 36)
	byteOrder.PutUint32(body2[28:32], 0xdeadbeef)
	req2 := plainRequest{opcode: glxGetFBConfigsOpcode, extension: "GLX", body: body2, replySize: 32}
	enc2 := encodeRequest(req2, nil, false, false, NewWorkaroundTable(), 0)
	assert.Equal(t, WorkaroundNone, enc2.pending.Workaround)
}
