package domain

// Pairing is one active two-participant session. The pair is
// unordered; Offerer marks which side initiates the media offer.
type Pairing struct {
	A       ParticipantID
	B       ParticipantID
	Offerer ParticipantID
}

// OffererOf picks the offer initiator for a pair. Both sides must be
// able to derive the same answer independently, so the rule is a plain
// total order over the ids: the lexicographically smaller one offers.
func OffererOf(a, b ParticipantID) ParticipantID {
	if a < b {
		return a
	}
	return b
}

// Partner returns the other side of the pairing, or "" if id is not
// part of it.
func (p Pairing) Partner(id ParticipantID) ParticipantID {
	switch id {
	case p.A:
		return p.B
	case p.B:
		return p.A
	default:
		return ""
	}
}
