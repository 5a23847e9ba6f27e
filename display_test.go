package x11c

import (
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainRequest is a minimal, hand-built generator-contract request used
// only by this package's own tests (request.go's QueryExtension is
// exercised below through extension opcode resolution).
type plainRequest struct {
	opcode    uint8
	extension string
	body      []byte
	replySize int
}

func (r plainRequest) Opcode() uint8          { return r.opcode }
func (r plainRequest) Extension() string      { return r.extension }
func (r plainRequest) Size() int              { return 4 + len(r.body) }
func (r plainRequest) AsBytes(buf []byte) int { return 4 + copy(buf[4:], r.body) }
func (plainRequest) FileDescriptors() []int   { return nil }
func (r plainRequest) ReplySize() int         { return r.replySize }
func (plainRequest) ReplyExpectsFDs() bool    { return false }

// newTestDisplayPipe returns a Display wired to one end of an in-memory
// pipe, and the raw net.Conn the test drives as the fake server on the
// other end.
func newTestDisplayPipe(t *testing.T) (*Display, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	d := NewDisplay(NewFileTransport(clientSide), 0x01000000, 0x000000ff)
	t.Cleanup(func() { d.Close() })
	return d, serverSide
}

func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := readFull(conn, buf)
	require.NoError(t, err)
	return buf
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TestDisplay_SingleRoundTrip is spec.md §8 scenario 1.
func TestDisplay_SingleRoundTrip(t *testing.T) {
	d, server := newTestDisplayPipe(t)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		wire := readExactly(t, server, 4)
		assert.Equal(t, []byte{20, 0, 1, 0}, wire)

		reply := make([]byte, 32)
		reply[0] = 1 // reply
		// sequence 0, additional bytes 0 (both already zero)
		_, err := server.Write(reply)
		assert.NoError(t, err)
	}()

	cookie, err := d.SendRequest(plainRequest{opcode: 20, replySize: 32}, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), cookie.Sequence())

	reply, err := d.ReplyFor(cookie)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), reply.Bytes[0])

	<-serverDone
}

// TestDisplay_ExtensionOpcodeResolution is spec.md §8 scenario 2: the
// first request naming an extension triggers QueryExtension; subsequent
// requests reuse the cached opcode without a second query.
func TestDisplay_ExtensionOpcodeResolution(t *testing.T) {
	d, server := newTestDisplayPipe(t)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)

		// QueryExtension request: core opcode 98, header only + name.
		header := readExactly(t, server, 4)
		require.Equal(t, uint8(98), header[0])
		length := int(byteOrder.Uint16(header[2:4])) * 4
		_ = readExactly(t, server, length-4)

		reply := make([]byte, 32)
		reply[0] = 1
		reply[8] = 1   // present
		reply[9] = 133 // major opcode
		_, err := server.Write(reply)
		require.NoError(t, err)

		// Second request: extension request using the cached opcode.
		extHeader := readExactly(t, server, 4)
		assert.Equal(t, uint8(133), extHeader[0])
		assert.Equal(t, uint8(7), extHeader[1])

		reply2 := make([]byte, 32)
		reply2[0] = 1
		byteOrder.PutUint16(reply2[2:4], 1) // sequence 1
		_, err = server.Write(reply2)
		require.NoError(t, err)

		// Third request: the same extension again goes straight out with
		// the cached opcode, with no second QueryExtension before it.
		thirdHeader := readExactly(t, server, 4)
		assert.Equal(t, uint8(133), thirdHeader[0])
		assert.Equal(t, uint8(7), thirdHeader[1])

		reply3 := make([]byte, 32)
		reply3[0] = 1
		byteOrder.PutUint16(reply3[2:4], 2) // sequence 2
		_, err = server.Write(reply3)
		require.NoError(t, err)
	}()

	cookie, err := d.SendRequest(plainRequest{opcode: 7, extension: "BIG-REQUESTS", replySize: 32}, false)
	require.NoError(t, err)
	_, err = d.ReplyFor(cookie)
	require.NoError(t, err)

	opcode, ok := d.extensions.lookup("BIG-REQUESTS")
	require.True(t, ok)
	assert.Equal(t, uint8(133), opcode)

	cookie2, err := d.SendRequest(plainRequest{opcode: 7, extension: "BIG-REQUESTS", replySize: 32}, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), cookie2.Sequence())
	_, err = d.ReplyFor(cookie2)
	require.NoError(t, err)

	<-serverDone
}

// TestDisplay_GLXLengthBugWorkaround is spec.md §8 scenario 3.
func TestDisplay_GLXLengthBugWorkaround(t *testing.T) {
	d, server := newTestDisplayPipe(t)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		header := readExactly(t, server, 4)
		// GLX is unresolved; QueryExtension happens first.
		require.Equal(t, uint8(98), header[0])
		length := int(byteOrder.Uint16(header[2:4])) * 4
		_ = readExactly(t, server, length-4)

		qeReply := make([]byte, 32)
		qeReply[0] = 1
		qeReply[8] = 1
		qeReply[9] = 150 // GLX major opcode
		_, err := server.Write(qeReply)
		require.NoError(t, err)

		glxHeader := readExactly(t, server, 4)
		assert.Equal(t, uint8(150), glxHeader[0])
		assert.Equal(t, uint8(glxVendorPrivateOpcode), glxHeader[1])

		// Under-reported reply: claims 0 additional units, but
		// num_visuals * num_props * 2 additional 4-byte units actually
		// follow.
		reply := make([]byte, 32)
		reply[0] = 1
		byteOrder.PutUint16(reply[2:4], 1) // sequence 1
		byteOrder.PutUint32(reply[8:12], 2)  // num_visuals
		byteOrder.PutUint32(reply[12:16], 3) // num_props
		_, err = server.Write(reply)
		require.NoError(t, err)

		extra := make([]byte, 2*3*2*4)
		_, err = server.Write(extra)
		require.NoError(t, err)
	}()

	cookie, err := d.SendRequest(plainRequest{opcode: glxVendorPrivateOpcode, extension: "GLX", replySize: 32}, false)
	require.NoError(t, err)

	reply, err := d.ReplyFor(cookie)
	require.NoError(t, err)
	assert.Equal(t, 32+2*3*2*4, len(reply.Bytes))

	<-serverDone
}

// TestDisplay_UnsolicitedError is spec.md §8 scenario 4.
func TestDisplay_UnsolicitedError(t *testing.T) {
	d, server := newTestDisplayPipe(t)
	defer server.Close()

	errBuf := make([]byte, 32)
	errBuf[0] = 0 // error
	errBuf[1] = 9 // arbitrary error code
	byteOrder.PutUint16(errBuf[2:4], 999)

	writeErrDone := make(chan struct{})
	go func() {
		defer close(writeErrDone)
		_, err := server.Write(errBuf)
		assert.NoError(t, err)
	}()

	err := d.Wait()
	<-writeErrDone
	require.Error(t, err)
	xerr, ok := err.(*XError)
	require.True(t, ok)
	assert.Equal(t, uint16(999), xerr.Sequence)
}

// TestDisplay_XGESpecialQueue is spec.md §8 scenario 5.
func TestDisplay_XGESpecialQueue(t *testing.T) {
	d, server := newTestDisplayPipe(t)
	defer server.Close()

	const xid = 0xdeadbeef
	d.RegisterSpecialEvent(xid)

	event := make([]byte, 32)
	event[0] = xgeEventCode
	byteOrder.PutUint32(event[12:16], xid)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		_, err := server.Write(event)
		assert.NoError(t, err)
	}()

	require.NoError(t, d.Wait())
	<-writeDone

	special, ok, err := d.GetSpecialEvent(xid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(xid), byteOrder.Uint32(special.Bytes[12:16]))

	_, ok = d.PopEvent()
	assert.False(t, ok, "main queue must remain empty when the XGE event had a matching special queue")
}

func TestDisplay_CheckedModePurgesOnDisable(t *testing.T) {
	d, _ := newTestDisplayPipe(t)
	d.SetChecked(true)

	// A request with no reply, sent while checked, still gets a pending
	// entry (spec.md §7).
	seq := d.st.nextSequence()
	encoded := encodeRequest(plainRequest{opcode: 1}, nil, false, true, d.workarounds, seq)
	require.True(t, encoded.hasPending)
	d.st.insertPending(encoded.pending)

	_, ok := d.st.takePending(seq)
	require.True(t, ok) // present after insert; takePending removed it, so reinsert to continue the test
	d.st.insertPending(encoded.pending)

	d.SetChecked(false)
	_, ok = d.st.takePending(seq)
	assert.False(t, ok, "turning checked mode off must purge outstanding checked-only entries")
}

func TestIOGuard_DisarmPreventsAbort(t *testing.T) {
	g := armIOGuard()
	g.Disarm()
	// No assertion beyond "does not abort the test process": the
	// finalizer, if it ran, would panic. Force a GC cycle so a bug here
	// would be observable instead of silently masked.
	runGCAndWait(t)
}

func runGCAndWait(t *testing.T) {
	t.Helper()
	// A couple of scheduling points are enough for the finalizer to run
	// if it were going to; this test only needs to prove a *disarmed*
	// guard never fires, not pin down finalizer timing.
	runtime.GC()
	time.Sleep(10 * time.Millisecond)
}
