package x11c

import "sync"

// conn wraps a Transport and serializes writes against it, mirroring the
// teacher's conn.go (a mutex-guarded io.WriteCloser shared by one or more
// encoders). Reads are not mutex-guarded here because the dispatcher is
// the sole reader (spec.md §5: "thread-safe variant permits one reader
// plus any number of writers").
type conn struct {
	transport Transport

	mu sync.Mutex
}

func newConn(t Transport) *conn {
	return &conn{transport: t}
}

// sendPacket writes buf and fds to the transport under conn's write lock.
func (c *conn) sendPacket(buf []byte, fds []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.transport.SendPacket(buf, fds)
	debug("sendPacket: %d bytes, %d fds, err=%v", len(buf), len(fds), err)
	return err
}

// readPacket reads exactly len(buf) bytes, appending any ancillary fds to
// *fdsOut. Not lock-guarded: see the comment on conn above.
func (c *conn) readPacket(buf []byte, fdsOut *[]int) error {
	return c.transport.ReadPacket(buf, fdsOut)
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Close()
}

// encodedRequest is the result of running the encoder algorithm of
// spec.md §4.4 over a Request.
type encodedRequest struct {
	bytes      []byte
	fds        []int
	pending    PendingRequest
	hasPending bool
}

// encodeRequest implements spec.md §4.4 steps 1-6 and 8 (step 7, sequence
// allocation, and step 9, insertion into the pending table, are the
// caller's responsibility since they are variant-specific — see
// display.go). extOpcode is the extension's major opcode from the
// extension cache, or nil for a core request.
func encodeRequest(req Request, extOpcode *uint8, discardReply, checked bool, workarounds *WorkaroundTable, sequence uint16) encodedRequest {
	size := req.Size()
	if size < 4 {
		size = 4
	}
	buf := make([]byte, size)
	n := req.AsBytes(buf)
	if n < 4 {
		n = 4
	}

	padded := pad4(n)
	if padded > len(buf) {
		grown := make([]byte, padded)
		copy(grown, buf[:n])
		buf = grown
	} else {
		buf = buf[:padded]
	}

	opcode := req.Opcode()
	if extOpcode != nil {
		buf[0] = *extOpcode
		buf[1] = opcode
	} else {
		buf[0] = opcode
		buf[1] = 0
	}
	byteOrder.PutUint16(buf[2:4], uint16(padded/4))

	workaround := workarounds.Resolve(req.Extension(), opcode, buf)

	replySize := req.ReplySize()
	pending := PendingRequest{
		Sequence:     sequence,
		ExpectsFDs:   req.ReplyExpectsFDs(),
		DiscardReply: discardReply,
		Checked:      replySize == 0 && checked,
		Workaround:   workaround,
	}
	hasPending := replySize > 0 || checked

	major := opcode
	if extOpcode != nil {
		major = *extOpcode
	}
	debug("encodeRequest: sequence=%d major=%d minor=%d size=%d hasPending=%v workaround=%v",
		sequence, major, opcode, padded, hasPending, workaround)

	return encodedRequest{
		bytes:      buf,
		fds:        req.FileDescriptors(),
		pending:    pending,
		hasPending: hasPending,
	}
}
