package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pairline/pairline/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(Frame) error { return nil }
func (nopConn) Close()              {}

func TestRegistry_Register_Lookup_Unregister(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	p := domain.NewParticipant("p1", "u1")

	req.NoError(reg.Register(p, nopConn{}))
	req.Equal(1, reg.Len())

	sess, ok := reg.Lookup("p1")
	req.True(ok)
	req.Equal(p, sess.Participant)
	req.Equal(domain.StateIdle, sess.Participant.State)

	reg.Unregister("p1")
	_, ok = reg.Lookup("p1")
	req.False(ok)

	// Unregister of an absent participant is a no-op
	reg.Unregister("p1")
	req.Zero(reg.Len())
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.NoError(reg.Register(domain.NewParticipant("p1", "u1"), nopConn{}))
	err := reg.Register(domain.NewParticipant("p1", "u1"), nopConn{})
	req.ErrorIs(err, ErrDuplicateParticipant)
	req.Equal(1, reg.Len())
}
