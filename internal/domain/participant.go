// Package domain contains entity without logic, just meta-data
package domain

import (
	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 36

	// DefaultDisplayName is what a partner sees when the profile
	// lookup fails or the user never provided a name.
	DefaultDisplayName = "Stranger"
)

type (
	// ParticipantID identifies one connected session, stable for the
	// lifetime of the connection. Opaque, unique per connection.
	ParticipantID string

	// UserID is the external account identity. Not owned here; one
	// user may reconnect under many ParticipantIDs over time.
	UserID string
)

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

// State is the explicit pairing state of a participant. Illegal
// combinations (queued and paired at once) are checked against this
// tag before every transition instead of probing map membership.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StatePaired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	default:
		return "unknown"
	}
}

// Participant is the registry's record for one connected session.
// Display names are not duplicated here; they live in the profile
// directory keyed by UserID.
type Participant struct {
	ID     ParticipantID
	UserID UserID
	State  State
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(id ParticipantID, userID UserID) *Participant {
	return &Participant{ID: id, UserID: userID, State: StateIdle}
}
