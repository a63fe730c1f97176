package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairline/pairline/internal/domain"
)

// RestrictionGate tracks temporary chat suspensions by user identity.
// The expiry timestamp is the authoritative data: IsRestricted answers
// correctly whether or not the sweeper ever ran. Unlike the pool and
// pair table the gate has its own lock, because the sweeper goroutine
// touches it outside the broker's serialization.
type RestrictionGate struct {
	mu    sync.Mutex
	until map[domain.UserID]time.Time

	now func() time.Time
}

func NewRestrictionGate() *RestrictionGate {
	return &RestrictionGate{
		until: make(map[domain.UserID]time.Time),
		now:   time.Now,
	}
}

// Restrict blocks id from joining the pool for d, overwriting any
// earlier cooldown.
func (g *RestrictionGate) Restrict(id domain.UserID, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.until[id] = g.now().Add(d)
	log.Info().Str("module", "core.gate").Str("user", string(id)).Dur("cooldown", d).Msg("user restricted")
}

// IsRestricted reports whether id is currently blocked and how long
// remains. Expired entries are treated as absent and dropped lazily.
func (g *RestrictionGate) IsRestricted(id domain.UserID) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.until[id]
	if !ok {
		return false, 0
	}
	remaining := exp.Sub(g.now())
	if remaining <= 0 {
		delete(g.until, id)
		return false, 0
	}
	return true, remaining
}

// Sweep drops expired entries and returns how many were removed.
// Memory hygiene only; query correctness never depends on it.
func (g *RestrictionGate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	removed := 0
	for id, exp := range g.until {
		if !exp.After(now) {
			delete(g.until, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps at a low frequency until ctx is canceled. It only
// ever calls Sweep, never the pool or pair table.
func (g *RestrictionGate) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := g.Sweep(); n > 0 {
				log.Debug().Str("module", "core.gate").Int("removed", n).Msg("swept expired restrictions")
			}
		}
	}
}
