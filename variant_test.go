package x11c

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateVariants lets the table-driven tests below exercise both state
// implementations against the same behavioral contract.
func stateVariants() map[string]func() state {
	return map[string]func() state{
		"unsync": func() state { return newUnsyncState() },
		"sync":   func() state { return newSyncState() },
	}
}

func TestState_SequenceIsMonotonicAndWraps(t *testing.T) {
	for name, newState := range stateVariants() {
		t.Run(name, func(t *testing.T) {
			s := newState()
			first := s.nextSequence()
			second := s.nextSequence()
			assert.Equal(t, first+1, second)

			for i := 2; i < 1<<16; i++ {
				s.nextSequence()
			}
			assert.Equal(t, first, s.nextSequence(), "sequence must wrap modulo 2^16")
		})
	}
}

func TestState_InsertAndTakePending(t *testing.T) {
	for name, newState := range stateVariants() {
		t.Run(name, func(t *testing.T) {
			s := newState()
			s.insertPending(PendingRequest{Sequence: 5, Checked: true})

			p, ok := s.takePending(5)
			require.True(t, ok)
			assert.Equal(t, uint16(5), p.Sequence)

			_, ok = s.takePending(5)
			assert.False(t, ok, "takePending must remove the entry")
		})
	}
}

func TestState_ReplyAndErrorRoundTrip(t *testing.T) {
	for name, newState := range stateVariants() {
		t.Run(name, func(t *testing.T) {
			s := newState()

			s.storeReply(1, PendingReply{Bytes: []byte{0xaa}})
			reply, ok := s.takeReply(1)
			require.True(t, ok)
			assert.Equal(t, []byte{0xaa}, reply.Bytes)
			_, ok = s.takeReply(1)
			assert.False(t, ok)

			xerr := &XError{Code: 3, Sequence: 2}
			s.storeError(2, xerr)
			got, ok := s.takeError(2)
			require.True(t, ok)
			assert.Same(t, xerr, got)
			_, ok = s.takeError(2)
			assert.False(t, ok)
		})
	}
}

func TestState_PurgeCheckedOnlyKeepsUnchecked(t *testing.T) {
	for name, newState := range stateVariants() {
		t.Run(name, func(t *testing.T) {
			s := newState()
			s.insertPending(PendingRequest{Sequence: 1, Checked: true})
			s.insertPending(PendingRequest{Sequence: 2, Checked: false})

			s.purgeCheckedOnly()

			_, ok := s.takePending(1)
			assert.False(t, ok, "checked-only entries must be purged")
			_, ok = s.takePending(2)
			assert.True(t, ok, "unchecked entries must survive purgeCheckedOnly")
		})
	}
}
