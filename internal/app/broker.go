package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairline/pairline/internal/core"
	"github.com/pairline/pairline/internal/domain"
)

var ErrRestricted = errors.New("user is restricted")

// Broker is the matchmaking and session-coordination core. It owns the
// registry, wait pool and pair table as one unit behind a single
// mutex: every mutation runs one event at a time, which is what makes
// the exactly-once pairing invariant hold. Relays resolve the partner
// under the lock and push outside it.
type Broker struct {
	mu    sync.Mutex
	reg   *core.Registry
	pool  *core.WaitPool
	pairs *core.PairTable

	gate      *core.RestrictionGate
	filter    core.ContentFilter
	directory core.Directory
	cooldown  time.Duration
}

func NewBroker(gate *core.RestrictionGate, filter core.ContentFilter, directory core.Directory, cooldown time.Duration) *Broker {
	return &Broker{
		reg:       core.NewRegistry(),
		pool:      core.NewWaitPool(),
		pairs:     core.NewPairTable(),
		gate:      gate,
		filter:    filter,
		directory: directory,
		cooldown:  cooldown,
	}
}

// Join admits a participant into the wait pool and tries to match them
// immediately. A restricted user is told so and never queued. A second
// join for a live participant refreshes the connection handle instead
// of erroring.
func (b *Broker) Join(id domain.ParticipantID, userID domain.UserID, conn core.SignalConn) error {
	if restricted, remaining := b.gate.IsRestricted(userID); restricted {
		secs := int(math.Ceil(remaining.Seconds()))
		b.send(conn, RestrictedEvent{
			Type:          EventUserRestricted,
			Message:       fmt.Sprintf("You are restricted from chatting for %d more seconds due to using restricted words.", secs),
			RemainingTime: secs,
		})
		log.Warn().Str("module", "app.broker").Str("user", string(userID)).Int("remaining_s", secs).Msg("restricted join rejected")
		return ErrRestricted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sess, ok := b.reg.Lookup(id); ok {
		// Duplicate join event: refresh the handle, keep the state.
		sess.Conn = conn
		if sess.Participant.State == domain.StateIdle {
			b.enqueueAndMatchLocked(id)
		}
		return nil
	}

	p := domain.NewParticipant(id, userID)
	if err := b.reg.Register(p, conn); err != nil {
		return err
	}
	b.directory.SetPresence(userID, true)
	log.Info().Str("module", "app.broker").Str("pid", string(id)).Str("user", string(userID)).Msg("participant joined")

	b.enqueueAndMatchLocked(id)
	return nil
}

// Skip dissolves the caller's pairing and re-queues both sides. The
// former partner re-queues first, so a skip with no third party around
// reconverges to the same pair instead of stranding anyone.
func (b *Broker) Skip(id domain.ParticipantID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	partner, ok := b.pairs.Dissolve(id)
	if !ok {
		log.Debug().Str("module", "app.broker").Str("pid", string(id)).Msg("skip without pairing dropped")
		return
	}
	if sess, ok := b.reg.Lookup(id); ok {
		sess.Participant.State = domain.StateIdle
	}
	if sessP, ok := b.reg.Lookup(partner); ok {
		sessP.Participant.State = domain.StateIdle
		b.send(sessP.Conn, NoticeEvent{Type: EventPartnerSkipped})
	}
	log.Info().Str("module", "app.broker").Str("pid", string(id)).Str("partner", string(partner)).Msg("pairing skipped")

	b.enqueueAndMatchLocked(partner)
	b.enqueueAndMatchLocked(id)
}

// Leave removes the participant entirely. If they were paired the
// partner is notified and re-queued exactly once.
func (b *Broker) Leave(id domain.ParticipantID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(id)
}

// Disconnect is the transport-level leave. Idempotent: a second call
// for the same participant finds nothing and does nothing.
func (b *Broker) Disconnect(id domain.ParticipantID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(id)
}

func (b *Broker) leaveLocked(id domain.ParticipantID) {
	sess, ok := b.reg.Lookup(id)
	if !ok {
		return
	}
	partner, wasPaired := b.pairs.Dissolve(id)
	b.pool.Remove(id)
	b.reg.Unregister(id)
	b.directory.SetPresence(sess.Participant.UserID, false)
	log.Info().Str("module", "app.broker").Str("pid", string(id)).Bool("was_paired", wasPaired).Msg("participant left")

	if !wasPaired {
		return
	}
	if sessP, ok := b.reg.Lookup(partner); ok {
		sessP.Participant.State = domain.StateIdle
		b.send(sessP.Conn, NoticeEvent{Type: EventPartnerLeft})
		b.enqueueAndMatchLocked(partner)
	}
}

// RelaySignal forwards an opaque signaling frame to the sender's
// current partner, unchanged. A frame racing a dissolution has no
// partner anymore and is dropped silently.
func (b *Broker) RelaySignal(from domain.ParticipantID, frame core.Frame) {
	b.mu.Lock()
	var conn core.SignalConn
	if partner, ok := b.pairs.PartnerOf(from); ok {
		if sessP, ok := b.reg.Lookup(partner); ok {
			conn = sessP.Conn
		}
	}
	b.mu.Unlock()

	if conn == nil {
		log.Debug().Str("module", "app.broker").Str("pid", string(from)).Msg("stale signal relay dropped")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "app.broker").Str("pid", string(from)).Msg("signal relay dropped")
	}
}

// Chat relays a text message to the sender's partner and echoes it
// back, unless the message violates policy, in which case the
// violation sequence tears the pairing down.
func (b *Broker) Chat(from domain.ParticipantID, text, timestamp string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.reg.Lookup(from)
	if !ok {
		return
	}
	partner, ok := b.pairs.PartnerOf(from)
	if !ok {
		log.Debug().Str("module", "app.broker").Str("pid", string(from)).Msg("stale chat message dropped")
		return
	}
	sessP, ok := b.reg.Lookup(partner)
	if !ok {
		log.Error().Str("module", "app.broker").Str("pid", string(partner)).Msg("paired participant missing from registry")
		return
	}

	if b.filter.ContainsPolicyViolation(text) {
		b.violationLocked(sess, sessP)
		return
	}

	evt := ChatEvent{
		Type:       EventChatMessage,
		Message:    text,
		SenderID:   sess.Participant.UserID,
		SenderName: b.directory.FetchDisplayName(sess.Participant.UserID),
		Timestamp:  timestamp,
	}
	b.send(sessP.Conn, evt)
	b.send(sess.Conn, evt)
}

// violationLocked runs the mandatory ordered teardown for a policy
// violation: tell the sender, tell the partner, free and re-queue the
// partner, then drop the sender and start their cooldown. The partner
// must be re-queued before the sender is dropped so their notification
// never races a pool that still holds the dead pairing.
func (b *Broker) violationLocked(sender, partner *core.Session) {
	cooldownSecs := int(b.cooldown.Seconds())
	b.send(sender.Conn, ModerationEvent{
		Type:    EventRestrictedWordDetected,
		Message: fmt.Sprintf("You used a restricted word. You have been disconnected and restricted for %d seconds.", cooldownSecs),
	})
	b.send(partner.Conn, ModerationEvent{
		Type:    EventPartnerDisconnectedRestricted,
		Message: "Your partner was disconnected for using restricted words.",
	})

	senderID := sender.Participant.ID
	b.pairs.Dissolve(senderID)
	partner.Participant.State = domain.StateIdle
	b.enqueueAndMatchLocked(partner.Participant.ID)

	b.pool.Remove(senderID)
	b.reg.Unregister(senderID)
	b.directory.SetPresence(sender.Participant.UserID, false)
	sender.Conn.Close()

	b.gate.Restrict(sender.Participant.UserID, b.cooldown)
	log.Warn().Str("module", "app.broker").
		Str("pid", string(senderID)).
		Str("user", string(sender.Participant.UserID)).
		Msg("participant removed for policy violation")
}

// enqueueAndMatchLocked queues x and drains the pool: if anyone else
// is waiting, pair with the oldest; otherwise x stays queued. Every
// successful pairing consumes exactly two pool entries.
func (b *Broker) enqueueAndMatchLocked(x domain.ParticipantID) {
	sessX, ok := b.reg.Lookup(x)
	if !ok || sessX.Participant.State == domain.StatePaired {
		return
	}
	b.pool.Enqueue(x)
	sessX.Participant.State = domain.StateWaiting

	for {
		y, ok := b.pool.DequeueOther(x)
		if !ok {
			return
		}
		sessY, ok := b.reg.Lookup(y)
		if !ok {
			// Stale pool entry for a gone participant, keep draining.
			log.Warn().Str("module", "app.broker").Str("pid", string(y)).Msg("dropped stale pool entry")
			continue
		}
		offerer, err := b.pairs.Create(x, y)
		if err != nil {
			// Unreachable while all mutations run under one mutex.
			log.Error().Err(err).Str("module", "app.broker").
				Str("a", string(x)).Str("b", string(y)).
				Msg("invariant violation: pair create failed, retrying")
			continue
		}
		b.pool.Remove(x)
		sessX.Participant.State = domain.StatePaired
		sessY.Participant.State = domain.StatePaired

		nameX := b.directory.FetchDisplayName(sessX.Participant.UserID)
		nameY := b.directory.FetchDisplayName(sessY.Participant.UserID)
		b.send(sessX.Conn, MatchedEvent{Type: EventMatched, PartnerID: y, PartnerName: nameY, IsOfferer: offerer == x})
		b.send(sessY.Conn, MatchedEvent{Type: EventMatched, PartnerID: x, PartnerName: nameX, IsOfferer: offerer == y})
		log.Info().Str("module", "app.broker").
			Str("a", string(x)).Str("b", string(y)).Str("offerer", string(offerer)).
			Msg("participants matched")
		return
	}
}

// Stats is a read-only snapshot for the HTTP API.
type Stats struct {
	Participants   int `json:"participants"`
	Waiting        int `json:"waiting"`
	ActivePairings int `json:"activePairings"`
}

func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Participants:   b.reg.Len(),
		Waiting:        b.pool.Len(),
		ActivePairings: b.pairs.Pairings(),
	}
}

func (b *Broker) send(conn core.SignalConn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broker").Msg("marshal outbound event")
		return
	}
	if err := conn.TrySend(core.Frame(data)); err != nil {
		log.Debug().Err(err).Str("module", "app.broker").Msg("outbound event dropped")
	}
}
