package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pairline/pairline/internal/core"
	"github.com/pairline/pairline/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads until the connection dies; its exit is the universal
// disconnect signal driving all cleanup for this participant.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, pid domain.ParticipantID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Broker.Disconnect(pid)
	}()

	sess := &connSession{pid: pid}
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(sess, c, data)
		}
	}
}

// connSession is the read pump's per-connection state: identity is
// known only after a successful join.
type connSession struct {
	pid    domain.ParticipantID
	userID domain.UserID
}

func (s *connSession) joined() bool { return s.userID != "" }

func (ctl *Controller) dispatch(sess *connSession, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(sess, c, data)
	case "offer", "answer", "ice-candidate":
		ctl.handleRelay(sess, data)
	case "chat-message":
		ctl.handleChat(sess, data)
	case "skip":
		ctl.handleSkip(sess)
	case "leave":
		ctl.handleLeave(sess)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}
