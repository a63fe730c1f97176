package core

import "github.com/pairline/pairline/internal/domain"

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// SignalConn is a participant's transport endpoint.
// Owned by the adapter; the adapter must Close() it. Sends are
// best-effort: a push to a dead or saturated connection is dropped,
// the matching disconnect event drives cleanup separately.
type SignalConn interface {
	TrySend(Frame) error
	Close()
}

// SessionValidator resolves an auth token into a user identity.
// The display name comes from the token claims and may be empty.
type SessionValidator interface {
	ValidateSession(token string) (domain.UserID, string, error)
}

// ContentFilter answers the single moderation question the broker
// asks about a chat message.
type ContentFilter interface {
	ContainsPolicyViolation(text string) bool
}

// Directory is the narrow profile/presence collaborator. Both calls
// are best-effort and must not block: FetchDisplayName falls back to
// a default label, SetPresence is fire-and-forget.
type Directory interface {
	FetchDisplayName(id domain.UserID) string
	SetPresence(id domain.UserID, online bool)
}
