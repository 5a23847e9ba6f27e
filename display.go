package x11c

import "sync"

// Display composes a Transport, an XIDAllocator, an ExtensionCache, and a
// variant-specific state (spec.md §3 "Ownership", §4.7 "Display façade").
// It is the type embedders construct and call SendRequest/ReplyFor on.
//
// Two constructors select the variant: NewDisplay for single-goroutine
// use (unsyncState) and NewConcurrentDisplay for concurrent senders
// (syncState). Both return the same *Display type and expose the same
// methods; only the internal state implementation differs, per spec.md
// §9's "Variant polymorphism" design note.
type Display struct {
	conn        *conn
	xids        *XIDAllocator
	extensions  *ExtensionCache
	workarounds *WorkaroundTable
	st          state
	events      *eventQueues
	dispatch    *dispatcher
	metrics     *Metrics

	checkedMu sync.RWMutex
	checked   bool
}

func newDisplay(t Transport, xids *XIDAllocator, st state) *Display {
	c := newConn(t)
	events := newEventQueues()
	d := &Display{
		conn:        c,
		xids:        xids,
		extensions:  NewExtensionCache(),
		workarounds: NewWorkaroundTable(),
		st:          st,
		events:      events,
	}
	d.dispatch = newDispatcher(c, st, events)
	return d
}

// NewDisplay constructs the single-threaded Display variant: one mutex
// guarding interior-mutable pending tables, intended for a Display driven
// from a single goroutine at a time (spec.md §5: "two concurrent readers
// or two concurrent writers are a usage error" under this variant).
func NewDisplay(t Transport, xidBase, xidMask uint32) *Display {
	return newDisplay(t, NewXIDAllocator(xidBase, xidMask), newUnsyncState())
}

// NewConcurrentDisplay constructs the thread-safe Display variant:
// concurrent-safe pending tables and an atomic sequence counter, allowing
// any number of concurrent senders alongside the single reader driving
// Wait (spec.md §5: "the thread-safe variant permits one reader plus any
// number of writers").
func NewConcurrentDisplay(t Transport, xidBase, xidMask uint32) *Display {
	return newDisplay(t, NewXIDAllocator(xidBase, xidMask), newSyncState())
}

// SetMetrics attaches Prometheus instrumentation to the Display. A nil
// *Metrics (the default) disables instrumentation entirely; see
// metrics.go.
func (d *Display) SetMetrics(m *Metrics) {
	d.metrics = m
}

// SetChecked turns checked mode on or off (spec.md §7 "Checked vs
// unchecked mode"). Turning it off purges outstanding checked-only
// pending entries, since no cookie is ever redeemed for them.
func (d *Display) SetChecked(on bool) {
	d.checkedMu.Lock()
	defer d.checkedMu.Unlock()
	d.checked = on
	if !on {
		d.st.purgeCheckedOnly()
	}
}

// Checked reports whether the display is in checked mode.
func (d *Display) Checked() bool {
	d.checkedMu.RLock()
	defer d.checkedMu.RUnlock()
	return d.checked
}

// NextXID allocates the next client-side resource id.
func (d *Display) NextXID() (uint32, error) {
	id, err := d.xids.Next()
	if err != nil {
		d.metrics.incXIDExhausted()
		return 0, err
	}
	return id, nil
}

// resolveExtension returns extName's major opcode, querying the server
// with QueryExtension on first use (spec.md §4.3). Returns
// *ExtensionNotPresentError if the server reports the extension absent.
func (d *Display) resolveExtension(extName string) (uint8, error) {
	if opcode, ok := d.extensions.lookup(extName); ok {
		return opcode, nil
	}

	cookie, err := d.sendRequest(QueryExtension{Name: extName}, false)
	if err != nil {
		return 0, err
	}
	reply, err := d.ReplyFor(cookie)
	if err != nil {
		return 0, err
	}
	decoded := DecodeQueryExtensionReply(reply.Bytes)
	if !decoded.Present {
		return 0, &ExtensionNotPresentError{Name: extName}
	}

	d.extensions.store(extName, decoded.MajorOpcode)
	return decoded.MajorOpcode, nil
}

// SendRequest encodes req, resolving its extension opcode if necessary,
// and sends it to the server, returning a cookie redeemable via ReplyFor.
// If discardReply is true, any reply the server sends back is read and
// dropped rather than stored (spec.md §4.4).
func (d *Display) SendRequest(req Request, discardReply bool) (RequestCookie, error) {
	return d.sendRequest(req, discardReply)
}

func (d *Display) sendRequest(req Request, discardReply bool) (RequestCookie, error) {
	var extOpcode *uint8
	if ext := req.Extension(); ext != "" {
		opcode, err := d.resolveExtension(ext)
		if err != nil {
			return RequestCookie{}, err
		}
		extOpcode = &opcode
	}

	sequence := d.st.nextSequence()
	encoded := encodeRequest(req, extOpcode, discardReply, d.Checked(), d.workarounds, sequence)

	if encoded.hasPending {
		d.st.insertPending(encoded.pending)
	}

	if err := d.conn.sendPacket(encoded.bytes, encoded.fds); err != nil {
		// The request never reached the wire: drop the pending entry we
		// just inserted so a later wait() doesn't wait for a reply that
		// will never come, and so the entry can't collide with sequence
		// reuse after wraparound.
		if encoded.hasPending {
			d.st.takePending(sequence)
		}
		return RequestCookie{}, err
	}

	d.metrics.incRequestsSent()
	return RequestCookie{sequence: sequence}, nil
}

// Wait processes exactly one inbound server message (spec.md §4.5). Most
// callers should use ReplyFor instead; Wait is exposed directly for
// draining unsolicited errors and events.
func (d *Display) Wait() error {
	err := d.dispatch.wait()
	if err != nil {
		d.metrics.incWaitErrors()
	}
	return err
}

// ReplyFor blocks, calling Wait as needed, until either the reply or the
// error matching cookie's sequence arrives, then removes and returns it
// (spec.md §4.7).
func (d *Display) ReplyFor(cookie RequestCookie) (PendingReply, error) {
	sequence := cookie.Sequence()
	for {
		if reply, ok := d.st.takeReply(sequence); ok {
			d.metrics.incRepliesMatched()
			return reply, nil
		}
		if xerr, ok := d.st.takeError(sequence); ok {
			d.metrics.incErrorsMatched()
			return PendingReply{}, xerr
		}
		if err := d.Wait(); err != nil {
			return PendingReply{}, err
		}
	}
}

// PopEvent returns the oldest event from the main queue, if any
// (spec.md §4.6).
func (d *Display) PopEvent() (Event, bool) {
	return d.events.popEvent()
}

// RegisterSpecialEvent creates an empty special event queue for xid.
func (d *Display) RegisterSpecialEvent(xid uint32) {
	d.events.registerSpecial(xid)
}

// UnregisterSpecialEvent drops xid's special event queue.
func (d *Display) UnregisterSpecialEvent(xid uint32) {
	d.events.unregisterSpecial(xid)
}

// GetSpecialEvent returns the oldest event from xid's special queue. Per
// spec.md §9(b) it returns ErrSpecialEventNotRegistered for an
// unregistered xid instead of panicking.
func (d *Display) GetSpecialEvent(xid uint32) (Event, bool, error) {
	return d.events.getSpecialEvent(xid)
}

// Close shuts down the underlying transport.
func (d *Display) Close() error {
	return d.conn.Close()
}
