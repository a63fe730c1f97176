package core

import "github.com/pairline/pairline/internal/domain"

// WaitPool is the ordered set of participants looking for a partner.
// Strict FIFO, one entry per participant. Like Registry, it relies on
// the broker for serialization.
type WaitPool struct {
	order   []domain.ParticipantID
	present map[domain.ParticipantID]struct{}
}

func NewWaitPool() *WaitPool {
	return &WaitPool{present: make(map[domain.ParticipantID]struct{})}
}

// Enqueue appends id unless already queued. Duplicate join events are
// expected; the second one is a no-op, not an error.
func (p *WaitPool) Enqueue(id domain.ParticipantID) bool {
	if _, ok := p.present[id]; ok {
		return false
	}
	p.order = append(p.order, id)
	p.present[id] = struct{}{}
	return true
}

// DequeueOther removes and returns the oldest queued participant whose
// id differs from exclude. The exclusion guards against self-matching
// when the caller's own stale entry is at the head of the queue.
func (p *WaitPool) DequeueOther(exclude domain.ParticipantID) (domain.ParticipantID, bool) {
	for i, id := range p.order {
		if id == exclude {
			continue
		}
		p.order = append(p.order[:i], p.order[i+1:]...)
		delete(p.present, id)
		return id, true
	}
	return "", false
}

// Remove drops id if queued, no-op otherwise.
func (p *WaitPool) Remove(id domain.ParticipantID) bool {
	if _, ok := p.present[id]; !ok {
		return false
	}
	delete(p.present, id)
	for i, queued := range p.order {
		if queued == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

func (p *WaitPool) Contains(id domain.ParticipantID) bool {
	_, ok := p.present[id]
	return ok
}

func (p *WaitPool) Len() int {
	return len(p.order)
}

// Snapshot returns the queue in FIFO order.
func (p *WaitPool) Snapshot() []domain.ParticipantID {
	out := make([]domain.ParticipantID, len(p.order))
	copy(out, p.order)
	return out
}
