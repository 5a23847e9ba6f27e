package x11c

// dispatcher implements the single wait() operation of spec.md §4.5: read
// one inbound message, classify it, and route it. It is a direct
// adaptation of the teacher's clientConn.recv() loop (conn.go), read one
// message → look up its id → route into a channel/table, generalized from
// SFTP's single type+id framing to X11's error/reply/event framing with
// the GLX length-bug and additional-bytes passes spec.md §4.5 requires.
type dispatcher struct {
	c      *conn
	st     state
	events *eventQueues
}

func newDispatcher(c *conn, st state, events *eventQueues) *dispatcher {
	return &dispatcher{c: c, st: st, events: events}
}

// wait reads and dispatches exactly one server message. It returns a
// non-nil error either for a transport failure, ErrClosedConnection, a
// NoMatchingRequestError, or an unsolicited *XError with no matching
// pending request (spec.md §4.5 step 4, §7 "Propagation policy").
func (d *dispatcher) wait() error {
	buf := make([]byte, headerLen)
	var fds []int

	if err := d.c.readPacket(buf, &fds); err != nil {
		return err
	}

	msgType := buf[0]

	// Workaround pass (spec.md §4.5 step 2).
	if msgType == msgTypeReply {
		sequence := byteOrder.Uint16(buf[2:4])
		if p, ok := d.peekPending(sequence); ok && p.Workaround == WorkaroundGlxFBConfigBug {
			numVisuals := byteOrder.Uint32(buf[8:12])
			numProps := byteOrder.Uint32(buf[12:16])
			byteOrder.PutUint32(buf[4:8], numVisuals*numProps*2)
		}
	}

	// Additional-bytes pass (spec.md §4.5 step 3).
	if msgType == msgTypeReply || (msgType&syntheticMask) == xgeEventCode {
		additionalUnits := byteOrder.Uint32(buf[4:8])
		if additionalUnits > 0 {
			extra := make([]byte, additionalUnits*4)
			if err := d.c.readPacket(extra, &fds); err != nil {
				return err
			}
			buf = append(buf, extra...)
		}
	}

	return d.classify(msgType, buf, fds)
}

// peekPending looks up a pending request without removing it, so the
// workaround pass can inspect its flags before the classify step performs
// the real (removing) lookup.
func (d *dispatcher) peekPending(sequence uint16) (PendingRequest, bool) {
	// takePending removes; reinsert immediately so classify's own
	// takePending still observes it. This keeps state's interface small
	// (no separate peek method) at the cost of one extra map round trip,
	// which only happens on the rare GLX-workaround path.
	p, ok := d.st.takePending(sequence)
	if ok {
		d.st.insertPending(p)
	}
	return p, ok
}

func (d *dispatcher) classify(msgType byte, buf []byte, fds []int) error {
	switch {
	case msgType == msgTypeReply:
		debug("classify: reply sequence=%d", byteOrder.Uint16(buf[2:4]))
		return d.classifyReply(buf, fds)
	case msgType == msgTypeError:
		debug("classify: error sequence=%d", byteOrder.Uint16(buf[2:4]))
		return d.classifyError(buf)
	default:
		debug("classify: event msgType=%d", msgType)
		return d.classifyEvent(msgType, buf)
	}
}

func (d *dispatcher) classifyReply(buf []byte, fds []int) error {
	sequence := byteOrder.Uint16(buf[2:4])

	pending, ok := d.st.takePending(sequence)
	if !ok {
		return &NoMatchingRequestError{Sequence: sequence}
	}
	if pending.DiscardReply {
		debug("classifyReply: sequence=%d reply discarded", sequence)
		return nil
	}
	d.st.storeReply(sequence, PendingReply{Bytes: buf, FDs: fds})
	return nil
}

func (d *dispatcher) classifyError(buf []byte) error {
	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return ErrClosedConnection
	}

	xerr := parseXError(buf)
	if _, ok := d.st.takePending(xerr.Sequence); ok {
		d.st.storeError(xerr.Sequence, xerr)
		return nil
	}
	// No matching pending request: the error is surfaced directly from
	// this call to wait (spec.md §4.5 step 4, §7 Propagation policy).
	debug("classifyError: unsolicited error sequence=%d code=%d", xerr.Sequence, xerr.Code)
	return xerr
}

func (d *dispatcher) classifyEvent(msgType byte, buf []byte) error {
	event := Event{Bytes: buf}

	if (msgType & syntheticMask) == xgeEventCode {
		resource := byteOrder.Uint32(buf[12:16])
		if d.events.tryQueueSpecial(event, resource) {
			debug("classifyEvent: XGE routed to special queue resource=0x%x", resource)
			return nil
		}
	}

	d.events.pushMain(event)
	return nil
}
