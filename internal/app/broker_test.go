package app

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pairline/pairline/internal/core"
	"github.com/pairline/pairline/internal/domain"
)

type fakeConn struct {
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

// eventTypes decodes the type field of every captured frame, in order.
func (c *fakeConn) eventTypes(t *testing.T) []string {
	t.Helper()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env.Type)
	}
	return out
}

// lastEvent decodes the most recent frame of the given type into dst.
func (c *fakeConn) lastEvent(t *testing.T, typ string, dst any) {
	t.Helper()
	for i := len(c.frames) - 1; i >= 0; i-- {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(c.frames[i], &env))
		if env.Type == typ {
			require.NoError(t, json.Unmarshal(c.frames[i], dst))
			return
		}
	}
	t.Fatalf("no %q event captured", typ)
}

type stubFilter struct {
	banned string
}

func (f stubFilter) ContainsPolicyViolation(text string) bool {
	return f.banned != "" && strings.Contains(strings.ToLower(text), f.banned)
}

type stubDirectory struct {
	names  map[domain.UserID]string
	online map[domain.UserID]bool
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		names:  make(map[domain.UserID]string),
		online: make(map[domain.UserID]bool),
	}
}

func (d *stubDirectory) FetchDisplayName(id domain.UserID) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return domain.DefaultDisplayName
}

func (d *stubDirectory) SetPresence(id domain.UserID, online bool) {
	d.online[id] = online
}

type fixture struct {
	broker *Broker
	dir    *stubDirectory
}

func newFixture(banned string, cooldown time.Duration) *fixture {
	dir := newStubDirectory()
	return &fixture{
		broker: NewBroker(core.NewRestrictionGate(), stubFilter{banned: banned}, dir, cooldown),
		dir:    dir,
	}
}

func join(t *testing.T, fx *fixture, name string) (domain.ParticipantID, domain.UserID, *fakeConn) {
	t.Helper()
	pid := domain.NewParticipantID()
	uid := domain.UserID(uuid.NewString())
	fx.dir.names[uid] = name
	conn := &fakeConn{}
	require.NoError(t, fx.broker.Join(pid, uid, conn))
	return pid, uid, conn
}

func TestBroker_Two_Joins_Match(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	// Given one participant waiting alone
	pidA, _, connA := join(t, fx, "Alice")
	req.Empty(connA.frames)
	req.Equal(Stats{Participants: 1, Waiting: 1}, fx.broker.Stats())

	// When a second participant joins
	pidB, _, connB := join(t, fx, "Bob")

	// Then both sides receive matched with the other's name
	var evA, evB MatchedEvent
	connA.lastEvent(t, EventMatched, &evA)
	connB.lastEvent(t, EventMatched, &evB)
	req.Equal(pidB, evA.PartnerID)
	req.Equal("Bob", evA.PartnerName)
	req.Equal(pidA, evB.PartnerID)
	req.Equal("Alice", evB.PartnerName)

	// And exactly one side is the offerer
	req.NotEqual(evA.IsOfferer, evB.IsOfferer)

	req.Equal(Stats{Participants: 2, Waiting: 0, ActivePairings: 1}, fx.broker.Stats())
}

func TestBroker_Duplicate_Join_Does_Not_Self_Match(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)
	pid := domain.NewParticipantID()
	uid := domain.UserID("u1")

	req.NoError(fx.broker.Join(pid, uid, &fakeConn{}))
	// Second join for the same participant is a refresh, not an error
	refreshed := &fakeConn{}
	req.NoError(fx.broker.Join(pid, uid, refreshed))

	req.Equal(Stats{Participants: 1, Waiting: 1}, fx.broker.Stats())

	// A later match is delivered to the refreshed handle
	_, _, connB := join(t, fx, "Bob")
	req.Contains(refreshed.eventTypes(t), EventMatched)
	req.Contains(connB.eventTypes(t), EventMatched)
}

func TestBroker_Pairing_Is_Perfect_Matching(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	// Four joins form exactly two pairs in arrival order
	conns := make([]*fakeConn, 0, 4)
	for _, name := range []string{"a", "b", "c", "d"} {
		_, _, conn := join(t, fx, name)
		conns = append(conns, conn)
	}

	req.Equal(Stats{Participants: 4, Waiting: 0, ActivePairings: 2}, fx.broker.Stats())

	// Every participant was matched exactly once
	seen := make(map[domain.ParticipantID]struct{})
	for _, conn := range conns {
		var ev MatchedEvent
		conn.lastEvent(t, EventMatched, &ev)
		_, dup := seen[ev.PartnerID]
		req.False(dup, "partner %s appeared twice", ev.PartnerID)
		seen[ev.PartnerID] = struct{}{}
	}
	req.Len(seen, 4)
}

func TestBroker_Skip_With_Third_Party(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	pidA, _, _ := join(t, fx, "Alice")
	_, _, connB := join(t, fx, "Bob") // A-B paired
	_, _, connC := join(t, fx, "Cara") // C waits

	// When A skips
	fx.broker.Skip(pidA)

	// Then B is told and immediately re-matched with C
	types := connB.eventTypes(t)
	req.Contains(types, EventPartnerSkipped)
	req.Contains(connC.eventTypes(t), EventMatched)
	var ev MatchedEvent
	connB.lastEvent(t, EventMatched, &ev)
	req.Equal("Cara", ev.PartnerName)

	// And A waits for the next stranger
	req.Equal(Stats{Participants: 3, Waiting: 1, ActivePairings: 1}, fx.broker.Stats())
}

func TestBroker_Skip_With_No_Alternative_Reconverges(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	pidA, _, connA := join(t, fx, "Alice")
	pidB, _, connB := join(t, fx, "Bob")

	fx.broker.Skip(pidA)

	// With nobody else around the same two end up paired again
	req.Equal(Stats{Participants: 2, Waiting: 0, ActivePairings: 1}, fx.broker.Stats())
	req.Equal([]string{EventMatched, EventPartnerSkipped, EventMatched}, connB.eventTypes(t))
	var ev MatchedEvent
	connA.lastEvent(t, EventMatched, &ev)
	req.Equal(pidB, ev.PartnerID)
}

func TestBroker_Leave_Cleans_Up_And_Requeues_Partner(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	pidA, uidA, _ := join(t, fx, "Alice")
	_, _, connB := join(t, fx, "Bob")

	fx.broker.Leave(pidA)

	// A is fully removed, B is notified and re-queued exactly once
	req.Equal(Stats{Participants: 1, Waiting: 1, ActivePairings: 0}, fx.broker.Stats())
	req.Equal([]string{EventMatched, EventPartnerLeft}, connB.eventTypes(t))
	req.False(fx.dir.online[uidA])
}

func TestBroker_Disconnect_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	pidA, _, _ := join(t, fx, "Alice")
	_, _, connB := join(t, fx, "Bob")

	fx.broker.Disconnect(pidA)
	after := fx.broker.Stats()
	framesB := len(connB.frames)

	// The second disconnect changes nothing
	fx.broker.Disconnect(pidA)
	req.Equal(after, fx.broker.Stats())
	req.Len(connB.frames, framesB)
}

func TestBroker_Restriction_Blocks_Join_Until_Expiry(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)
	gate := fx.broker.gate
	uid := domain.UserID("restricted-user")
	gate.Restrict(uid, 30*time.Millisecond)

	pid := domain.NewParticipantID()
	conn := &fakeConn{}

	// A restricted join is rejected and never queued
	err := fx.broker.Join(pid, uid, conn)
	req.ErrorIs(err, ErrRestricted)
	var ev RestrictedEvent
	conn.lastEvent(t, EventUserRestricted, &ev)
	req.Positive(ev.RemainingTime)
	req.Equal(Stats{}, fx.broker.Stats())

	// After the cooldown the identical join succeeds
	time.Sleep(40 * time.Millisecond)
	req.NoError(fx.broker.Join(pid, uid, conn))
	req.Equal(Stats{Participants: 1, Waiting: 1}, fx.broker.Stats())
}

func TestBroker_Chat_Relays_To_Partner_And_Echoes(t *testing.T) {
	req := require.New(t)
	fx := newFixture("badger", 10*time.Second)

	pidA, uidA, connA := join(t, fx, "Alice")
	_, _, connB := join(t, fx, "Bob")

	fx.broker.Chat(pidA, "hello there", "2026-08-28T12:00:00Z")

	var evA, evB ChatEvent
	connA.lastEvent(t, EventChatMessage, &evA)
	connB.lastEvent(t, EventChatMessage, &evB)
	req.Equal(evB, evA)
	req.Equal("hello there", evB.Message)
	req.Equal(uidA, evB.SenderID)
	req.Equal("Alice", evB.SenderName)
	req.Equal("2026-08-28T12:00:00Z", evB.Timestamp)
}

func TestBroker_Violation_Sequence(t *testing.T) {
	req := require.New(t)
	fx := newFixture("badger", 10*time.Second)

	pidA, uidA, connA := join(t, fx, "Alice")
	_, _, connB := join(t, fx, "Bob")

	fx.broker.Chat(pidA, "you absolute BADGER", "ts")

	// Sender is told, disconnected and restricted
	req.Contains(connA.eventTypes(t), EventRestrictedWordDetected)
	req.True(connA.closed)
	restricted, remaining := fx.broker.gate.IsRestricted(uidA)
	req.True(restricted)
	req.InDelta(float64(10*time.Second), float64(remaining), float64(time.Second))
	req.False(fx.dir.online[uidA])

	// Partner is told and re-queued, sender is gone entirely
	req.Contains(connB.eventTypes(t), EventPartnerDisconnectedRestricted)
	req.Equal(Stats{Participants: 1, Waiting: 1, ActivePairings: 0}, fx.broker.Stats())

	// No chat message was relayed to anyone
	req.NotContains(connB.eventTypes(t), EventChatMessage)
}

func TestBroker_RelaySignal_Forwards_Verbatim(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	pidA, _, _ := join(t, fx, "Alice")
	_, _, connB := join(t, fx, "Bob")

	raw := core.Frame(`{"type":"offer","sdp":"v=0 opaque blob"}`)
	fx.broker.RelaySignal(pidA, raw)

	req.Equal(raw, connB.frames[len(connB.frames)-1])
}

func TestBroker_Stale_Relay_Is_Dropped(t *testing.T) {
	req := require.New(t)
	fx := newFixture("", 10*time.Second)

	pidA, _, _ := join(t, fx, "Alice")
	pidB, _, connB := join(t, fx, "Bob")
	fx.broker.Skip(pidB)
	fx.broker.Leave(pidB)

	before := len(connB.frames)
	fx.broker.RelaySignal(pidA, core.Frame(`{"type":"ice-candidate"}`))
	fx.broker.Chat(pidB, "ghost message", "ts")

	req.Len(connB.frames, before)
}
