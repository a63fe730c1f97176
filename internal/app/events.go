package app

import "github.com/pairline/pairline/internal/domain"

// Outbound event types pushed to participant connections.
const (
	EventMatched                       = "matched"
	EventPartnerSkipped                = "partner-skipped"
	EventPartnerLeft                   = "partner-left"
	EventUserRestricted                = "user-restricted"
	EventRestrictedWordDetected        = "restricted-word-detected"
	EventPartnerDisconnectedRestricted = "partner-disconnected-restricted"
	EventChatMessage                   = "chat-message"
)

// MatchedEvent tells a participant who they were paired with and
// whether they initiate the media offer.
type MatchedEvent struct {
	Type        string               `json:"type"`
	PartnerID   domain.ParticipantID `json:"partnerId"`
	PartnerName string               `json:"partnerName"`
	IsOfferer   bool                 `json:"isOfferer"`
}

// NoticeEvent carries a type-only notification (partner-skipped,
// partner-left).
type NoticeEvent struct {
	Type string `json:"type"`
}

// RestrictedEvent rejects a join attempt from a restricted user.
type RestrictedEvent struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	RemainingTime int    `json:"remainingTime"`
}

// ModerationEvent notifies either side of a policy-violation teardown.
type ModerationEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatEvent is a relayed text message, sent to the partner and echoed
// back to the sender as delivery confirmation.
type ChatEvent struct {
	Type       string        `json:"type"`
	Message    string        `json:"message"`
	SenderID   domain.UserID `json:"senderId"`
	SenderName string        `json:"senderName"`
	Timestamp  string        `json:"timestamp"`
}
