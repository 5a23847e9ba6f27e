package x11c

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrPending describes a polled operation that has not completed yet. The
// polled I/O operations (TrySendPacket, TryReadPacket, and the
// Display-level TrySendRequest/TryWait built on them) do not return it:
// when ctx is done before the underlying transfer completes they report
// ready == false with a nil error. The
// operation keeps running in the background against the same PartialIO;
// retrying with that same PartialIO observes its eventual result without
// re-issuing the transfer (spec.md §4.1: "the polled form is re-entrant
// ... so that a cancelled attempt can be retried without double-writing").
var ErrPending = errors.New("x11c: operation has not completed yet")

// IOGuard enforces spec.md §5's cancellation rule for a single in-progress
// I/O operation: "a dropped/cancelled send or receive future is tainted
// ... The design plants a guard on every in-progress I/O operation that,
// on drop without explicit disarm, aborts the process." Go has no Drop
// impl to hook; IOGuard's nearest stdlib analogue is a finalizer, armed
// when the operation starts and disarmed only once it completes cleanly
// and its result has been collected. This is a best-effort backstop, not
// a deterministic one — finalizers run at the next GC, not the instant a
// guard becomes unreachable — but it converts "silently desynchronized
// stream" into "process aborts, eventually" rather than leaving the
// corruption undetected.
type IOGuard struct {
	disarmed atomic.Bool
}

func armIOGuard() *IOGuard {
	g := &IOGuard{}
	runtime.SetFinalizer(g, func(g *IOGuard) {
		if !g.disarmed.Load() {
			panic("x11c: in-progress transport I/O was abandoned without disarming its guard; aborting rather than risk a desynchronized stream")
		}
	})
	return g
}

// Disarm marks the guarded operation as having completed cleanly.
func (g *IOGuard) Disarm() {
	g.disarmed.Store(true)
	runtime.SetFinalizer(g, nil)
}

// PartialIO is the resumable, re-entrant handle for one polled transport
// operation (spec.md §4.1). The zero value is ready to use. A PartialIO
// must not be shared between concurrent pollers; it represents exactly
// one logical send or receive, and TrySendRequest/TryWait stash whatever
// state needs to survive a cancelled retry directly on it (encoded bytes
// and sequence for a send; header, classification state, and the nested
// PartialIO for the additional-bytes phase for a wait).
type PartialIO struct {
	once  sync.Once
	ch    chan struct{}
	err   error
	guard *IOGuard

	// TrySendRequest bookkeeping. Prepared at most once per PartialIO so
	// a retry after a not-ready result reuses the sequence and encoding that were
	// actually handed to TrySendPacket, instead of burning a fresh
	// sequence number and orphan pending-table entry on every retry.
	sendPrepared bool
	sendSequence uint16
	sendEncoded  encodedRequest

	// TryWait bookkeeping. The header phase and the additional-bytes
	// phase each suspend independently; waitExtra is a second PartialIO
	// for the additional-bytes read so its own retries don't re-run the
	// header phase.
	waitHeaderDone bool
	waitBuf        []byte
	waitFDs        []int
	waitMsgType    byte
	waitExtraBuf   []byte
	waitExtra      *PartialIO
}

func (p *PartialIO) start(op func() error) {
	p.once.Do(func() {
		p.ch = make(chan struct{})
		p.guard = armIOGuard()
		go func() {
			p.err = op()
			p.guard.Disarm()
			close(p.ch)
		}()
	})
}

// TrySendPacket attempts to complete sending buf and fds before ctx is
// done, retrying (without resending) across repeated calls with the same
// PartialIO.
func (c *conn) TrySendPacket(ctx context.Context, pio *PartialIO, buf []byte, fds []int) (bool, error) {
	pio.start(func() error { return c.sendPacket(buf, fds) })
	select {
	case <-pio.ch:
		return true, pio.err
	case <-ctx.Done():
		return false, nil
	}
}

// TryReadPacket attempts to complete reading len(buf) bytes (plus
// ancillary fds into *fdsOut) before ctx is done, retrying across
// repeated calls with the same PartialIO.
func (c *conn) TryReadPacket(ctx context.Context, pio *PartialIO, buf []byte, fdsOut *[]int) (bool, error) {
	pio.start(func() error { return c.readPacket(buf, fdsOut) })
	select {
	case <-pio.ch:
		return true, pio.err
	case <-ctx.Done():
		return false, nil
	}
}

// TrySendRequest is the polled flavor of SendRequest (spec.md §4.7): it
// encodes req exactly as SendRequest does, then attempts to complete the
// send before ctx is done. When ready is false (with err == nil),
// callers must retry with the same PartialIO; sequence allocation, the
// encoding, and the pending-table insert happen at most once across all
// such retries, stashed on pio the first time through.
func (d *Display) TrySendRequest(ctx context.Context, pio *PartialIO, req Request, discardReply bool) (cookie RequestCookie, ready bool, err error) {
	if !pio.sendPrepared {
		var extOpcode *uint8
		if ext := req.Extension(); ext != "" {
			opcode, err := d.resolveExtension(ext)
			if err != nil {
				return RequestCookie{}, true, err
			}
			extOpcode = &opcode
		}

		sequence := d.st.nextSequence()
		encoded := encodeRequest(req, extOpcode, discardReply, d.Checked(), d.workarounds, sequence)
		if encoded.hasPending {
			d.st.insertPending(encoded.pending)
		}
		debug("trySendRequest: prepared sequence=%d opcode=%d pending=%v", sequence, req.Opcode(), encoded.hasPending)

		pio.sendSequence = sequence
		pio.sendEncoded = encoded
		pio.sendPrepared = true
	}

	done, sendErr := d.conn.TrySendPacket(ctx, pio, pio.sendEncoded.bytes, pio.sendEncoded.fds)
	if !done {
		return RequestCookie{}, false, nil
	}
	if sendErr != nil {
		if pio.sendEncoded.hasPending {
			d.st.takePending(pio.sendSequence)
		}
		return RequestCookie{}, true, sendErr
	}

	d.metrics.incRequestsSent()
	return RequestCookie{sequence: pio.sendSequence}, true, nil
}

// TryWait is the polled flavor of Wait: it attempts to read and dispatch
// exactly one server message before ctx is done. Both the header read and
// the additional-bytes read (spec.md §4.5 step 3) are themselves
// suspension points on a live socket, so each is driven through its own
// TryReadPacket/PartialIO instead of a blocking call; a caller that sees
// ready == false can retry with the same pio and resume at whichever
// phase it left off in.
func (d *Display) TryWait(ctx context.Context, pio *PartialIO) (ready bool, err error) {
	if !pio.waitHeaderDone {
		if pio.waitBuf == nil {
			pio.waitBuf = make([]byte, headerLen)
		}

		done, readErr := d.conn.TryReadPacket(ctx, pio, pio.waitBuf, &pio.waitFDs)
		if !done {
			return false, nil
		}
		if readErr != nil {
			d.metrics.incWaitErrors()
			return true, readErr
		}

		pio.waitHeaderDone = true
		pio.waitMsgType = pio.waitBuf[0]
		debug("tryWait: header read msgType=%d", pio.waitMsgType)

		// Workaround pass (spec.md §4.5 step 2).
		if pio.waitMsgType == msgTypeReply {
			sequence := byteOrder.Uint16(pio.waitBuf[2:4])
			if p, ok := d.st.takePending(sequence); ok {
				d.st.insertPending(p)
				if p.Workaround == WorkaroundGlxFBConfigBug {
					numVisuals := byteOrder.Uint32(pio.waitBuf[8:12])
					numProps := byteOrder.Uint32(pio.waitBuf[12:16])
					byteOrder.PutUint32(pio.waitBuf[4:8], numVisuals*numProps*2)
				}
			}
		}
	}

	buf := pio.waitBuf
	msgType := pio.waitMsgType

	// Additional-bytes pass (spec.md §4.5 step 3): also a real read off
	// the transport, so it gets its own resumable PartialIO rather than
	// blocking the caller past ctx's deadline.
	if msgType == msgTypeReply || (msgType&syntheticMask) == xgeEventCode {
		additionalUnits := byteOrder.Uint32(buf[4:8])
		if additionalUnits > 0 {
			if pio.waitExtra == nil {
				pio.waitExtra = &PartialIO{}
				pio.waitExtraBuf = make([]byte, additionalUnits*4)
			}

			done, readErr := d.conn.TryReadPacket(ctx, pio.waitExtra, pio.waitExtraBuf, &pio.waitFDs)
			if !done {
				return false, nil
			}
			if readErr != nil {
				d.metrics.incWaitErrors()
				return true, readErr
			}
			buf = append(buf, pio.waitExtraBuf...)
		}
	}

	err = d.dispatch.classify(msgType, buf, pio.waitFDs)
	if err != nil {
		d.metrics.incWaitErrors()
	}
	return true, err
}
