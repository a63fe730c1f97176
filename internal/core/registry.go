package core

import (
	"errors"

	"github.com/pairline/pairline/internal/domain"
)

var ErrDuplicateParticipant = errors.New("participant already registered")

// Session binds a participant record to its transport endpoint.
type Session struct {
	Participant *domain.Participant
	Conn        SignalConn
}

// Registry is the sole owner of Participant records. It is not
// internally locked: together with WaitPool and PairTable it forms one
// conceptual unit that the broker serializes under a single mutex, so
// a partial-lock interleaving can never break the pairing invariant.
type Registry struct {
	sessions map[domain.ParticipantID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ParticipantID]*Session)}
}

// Register stores a new session. A second register for a live
// participant returns ErrDuplicateParticipant; callers treat it as an
// idempotent refresh, not a hard failure.
func (r *Registry) Register(p *domain.Participant, conn SignalConn) error {
	if _, ok := r.sessions[p.ID]; ok {
		return ErrDuplicateParticipant
	}
	r.sessions[p.ID] = &Session{Participant: p, Conn: conn}
	return nil
}

// Unregister removes all state for the participant. No-op if absent,
// safe to call any number of times.
func (r *Registry) Unregister(id domain.ParticipantID) {
	delete(r.sessions, id)
}

func (r *Registry) Lookup(id domain.ParticipantID) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
