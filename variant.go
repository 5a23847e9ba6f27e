package x11c

// state abstracts the sequence counter and the pending-request/reply/error
// tables — the one part of a Display that spec.md §4.7 and §9 ("Variant
// polymorphism") calls out as needing two implementations. Everything
// else (transport, XID allocator, extension cache, event queues, the
// encoder, the dispatcher) is identical between variants; only how the
// pending tables are synchronized differs. In a language with zero-cost
// generics the source abstracts this behind a trait; Go's equivalent
// (DESIGN NOTES (a)) is a small interface with two concrete
// implementations selected at construction time — the "runtime-chosen
// variant behind a small virtual dispatch" option spec.md §9 describes.
type state interface {
	// nextSequence returns the next sequence number, wrapping modulo
	// 2^16, in the order it is called (spec.md §5).
	nextSequence() uint16

	// insertPending records p under p.Sequence.
	insertPending(p PendingRequest)

	// takePending removes and returns the pending request at seq, if any.
	takePending(seq uint16) (PendingRequest, bool)

	// storeReply records a reply under seq.
	storeReply(seq uint16, r PendingReply)

	// takeReply removes and returns the reply at seq, if any.
	takeReply(seq uint16) (PendingReply, bool)

	// storeError records a parsed server error under seq.
	storeError(seq uint16, e *XError)

	// takeError removes and returns the error at seq, if any.
	takeError(seq uint16) (*XError, bool)

	// purgeCheckedOnly drops every pending entry whose Checked flag is
	// set and whose reply type has size 0 (spec.md §3 invariant: "A
	// request is discarded from the pending table either ... (b) when
	// the display leaves checked mode and the request's checked flag is
	// true").
	purgeCheckedOnly()
}
