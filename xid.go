package x11c

import "sync"

// XIDAllocator hands out client-side X11 resource identifiers from a
// server-granted sub-range, per spec.md §4.2. The same algorithm backs
// both the single-threaded and thread-safe Display variants; only the
// locking discipline differs, and here a mutex covers both cases (Go has
// no zero-cost single-threaded cell, so the "interior mutability" variant
// described in spec.md §4.7 and §9 collapses to the same mutex-guarded
// struct used by the concurrent variant).
type XIDAllocator struct {
	mu sync.Mutex

	base uint32
	mask uint32
	inc  uint32
	last uint32
	max  uint32
}

// NewXIDAllocator constructs an allocator over the XID sub-range the
// server granted this client: every issued XID has its bits confined to
// base|mask.
func NewXIDAllocator(base, mask uint32) *XIDAllocator {
	inc := mask & (-mask)
	return &XIDAllocator{
		base: base,
		mask: mask,
		inc:  inc,
	}
}

// Next returns the next XID in the allocator's range, or ErrNoXID once
// the range is exhausted. Exhaustion is terminal: once Next returns
// ErrNoXID it continues to do so on every subsequent call.
func (a *XIDAllocator) Next() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last >= a.max-a.inc+1 {
		if a.last != a.max {
			// last starts equal to max (both 0) and, once seeded,
			// advances by inc until it lands exactly on max, so the
			// boundary is only ever reached with last == max.
			panic("x11c: XIDAllocator invariant violated: last != max at boundary")
		}
		if a.last == 0 {
			// First call: seed the range.
			a.max = a.mask
			a.last = a.inc
			id := a.last | a.base
			debug("xid: seeded range base=0x%x mask=0x%x issued=0x%x", a.base, a.mask, id)
			return id, nil
		}
		debug("xid: range base=0x%x mask=0x%x exhausted", a.base, a.mask)
		return 0, ErrNoXID
	}

	a.last += a.inc
	id := a.last | a.base
	debug("xid: issued=0x%x", id)
	return id, nil
}
