package x11c

import "sync"

// unsyncState is the single-threaded variant's state: one mutex guarding
// plain maps and a plain counter, the nearest Go equivalent to the
// source's cell/refcell interior mutability (spec.md §4.7, §9). It is
// intended for a Display driven from a single goroutine at a time; unlike
// syncState it makes no attempt at fine-grained concurrency and omits the
// debug collision assertion, since a single caller can never race itself.
type unsyncState struct {
	mu sync.Mutex

	nextSeq uint16
	pending map[uint16]PendingRequest
	replies map[uint16]PendingReply
	errors  map[uint16]*XError
}

func newUnsyncState() *unsyncState {
	return &unsyncState{
		pending: make(map[uint16]PendingRequest),
		replies: make(map[uint16]PendingReply),
		errors:  make(map[uint16]*XError),
	}
}

func (s *unsyncState) nextSequence() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq
	s.nextSeq++
	return seq
}

func (s *unsyncState) insertPending(p PendingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.Sequence] = p
}

func (s *unsyncState) takePending(seq uint16) (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[seq]
	if ok {
		delete(s.pending, seq)
	}
	return p, ok
}

func (s *unsyncState) storeReply(seq uint16, r PendingReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[seq] = r
}

func (s *unsyncState) takeReply(seq uint16) (PendingReply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replies[seq]
	if ok {
		delete(s.replies, seq)
	}
	return r, ok
}

func (s *unsyncState) storeError(seq uint16, e *XError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[seq] = e
}

func (s *unsyncState) takeError(seq uint16) (*XError, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.errors[seq]
	if ok {
		delete(s.errors, seq)
	}
	return e, ok
}

func (s *unsyncState) purgeCheckedOnly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for seq, p := range s.pending {
		if p.Checked {
			delete(s.pending, seq)
		}
	}
}

var _ state = (*unsyncState)(nil)
