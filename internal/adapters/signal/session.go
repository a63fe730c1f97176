package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/pairline/pairline/internal/app"
	"github.com/pairline/pairline/internal/core"
)

func (ctl *Controller) handleJoin(sess *connSession, conn *wsConn, data []byte) {
	type joinPayload struct {
		Type  string `json:"type"`
		Token string `json:"token"`
		Name  string `json:"name,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}

	userID, claimName, err := ctl.Auth.ValidateSession(p.Token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("pid", string(sess.pid)).Msg("join with invalid session")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "invalid_session",
		})
		return
	}

	name := p.Name
	if name == "" {
		name = claimName
	}
	ctl.Directory.Record(userID, name)

	if err := ctl.Broker.Join(sess.pid, userID, conn); err != nil {
		// A restricted user already got their notification; anything
		// else is logged and the connection stays open for a retry.
		if !errors.Is(err, app.ErrRestricted) {
			log.Error().Err(err).Str("module", "signal").Str("pid", string(sess.pid)).Msg("join failed")
		}
		return
	}
	sess.userID = userID
	log.Info().Str("module", "signal").Str("pid", string(sess.pid)).Str("user", string(userID)).Msg("join")
}

// handleRelay forwards an opaque signaling frame (offer, answer or
// ice-candidate) verbatim; the server never parses the payload beyond
// the envelope type.
func (ctl *Controller) handleRelay(sess *connSession, data []byte) {
	if !sess.joined() {
		return
	}
	ctl.Broker.RelaySignal(sess.pid, core.Frame(data))
}

func (ctl *Controller) handleChat(sess *connSession, data []byte) {
	if !sess.joined() {
		return
	}
	if !ctl.Limiter.Allow(sess.userID) {
		log.Warn().Str("module", "signal").Str("user", string(sess.userID)).Msg("chat rate limit exceeded, message dropped")
		return
	}
	type chatPayload struct {
		Type      string `json:"type"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	ctl.Broker.Chat(sess.pid, p.Message, p.Timestamp)
}

func (ctl *Controller) handleSkip(sess *connSession) {
	if !sess.joined() {
		return
	}
	log.Info().Str("module", "signal").Str("pid", string(sess.pid)).Msg("skip")
	ctl.Broker.Skip(sess.pid)
}

func (ctl *Controller) handleLeave(sess *connSession) {
	if !sess.joined() {
		return
	}
	log.Info().Str("module", "signal").Str("pid", string(sess.pid)).Msg("leave")
	ctl.Broker.Leave(sess.pid)
	sess.userID = ""
}

func (ctl *Controller) handlePing(conn *wsConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
