// Package directory is the in-memory profile/presence store behind the
// narrow collaborator interface the broker consumes. Names arrive from
// session-token claims at join time; nothing here is persisted.
package directory

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pairline/pairline/internal/domain"
)

type Directory struct {
	mu     sync.RWMutex
	names  map[domain.UserID]string
	online map[domain.UserID]struct{}
}

func New() *Directory {
	return &Directory{
		names:  make(map[domain.UserID]string),
		online: make(map[domain.UserID]struct{}),
	}
}

// Record stores the display name for a user. Over-long names are
// truncated, empty names are ignored so the default label applies.
func (d *Directory) Record(id domain.UserID, name string) {
	if name == "" {
		return
	}
	if len(name) > domain.MaxDisplayNameLen {
		name = name[:domain.MaxDisplayNameLen]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[id] = name
}

// FetchDisplayName is best-effort: an unknown user gets the default
// label, never an error.
func (d *Directory) FetchDisplayName(id domain.UserID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[id]; ok {
		return name
	}
	return domain.DefaultDisplayName
}

// SetPresence flips the online flag. Fire-and-forget; matching never
// consults it.
func (d *Directory) SetPresence(id domain.UserID, online bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if online {
		d.online[id] = struct{}{}
	} else {
		delete(d.online, id)
	}
	log.Debug().Str("module", "directory").Str("user", string(id)).Bool("online", online).Msg("presence updated")
}

// OnlineCount reports how many users are currently marked online.
func (d *Directory) OnlineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.online)
}
