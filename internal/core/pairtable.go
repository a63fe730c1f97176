package core

import (
	"errors"

	"github.com/pairline/pairline/internal/domain"
)

var ErrInvalidPair = errors.New("invalid pair")

// PairTable is the bidirectional pairing map: the unit of "who relays
// to whom". Both sides always point at the same Pairing value and are
// written and removed together, so a one-sided stale entry is
// unrepresentable.
type PairTable struct {
	pairs map[domain.ParticipantID]domain.Pairing
}

func NewPairTable() *PairTable {
	return &PairTable{pairs: make(map[domain.ParticipantID]domain.Pairing)}
}

// Create pairs a and b and returns the offerer id, derived from the
// same total order on both sides so exactly one participant initiates
// the media offer. Fails with ErrInvalidPair on a self-pair or when
// either side is already paired.
func (t *PairTable) Create(a, b domain.ParticipantID) (domain.ParticipantID, error) {
	if a == b {
		return "", ErrInvalidPair
	}
	if _, ok := t.pairs[a]; ok {
		return "", ErrInvalidPair
	}
	if _, ok := t.pairs[b]; ok {
		return "", ErrInvalidPair
	}
	p := domain.Pairing{A: a, B: b, Offerer: domain.OffererOf(a, b)}
	t.pairs[a] = p
	t.pairs[b] = p
	return p.Offerer, nil
}

// Dissolve atomically removes both sides of id's pairing and returns
// the former partner so the caller can notify and re-queue them.
// Returns false if id is not paired.
func (t *PairTable) Dissolve(id domain.ParticipantID) (domain.ParticipantID, bool) {
	p, ok := t.pairs[id]
	if !ok {
		return "", false
	}
	other := p.Partner(id)
	delete(t.pairs, id)
	delete(t.pairs, other)
	return other, true
}

func (t *PairTable) PartnerOf(id domain.ParticipantID) (domain.ParticipantID, bool) {
	p, ok := t.pairs[id]
	if !ok {
		return "", false
	}
	return p.Partner(id), true
}

// Pairings returns the number of active pairs.
func (t *PairTable) Pairings() int {
	return len(t.pairs) / 2
}
