package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pairline/pairline/internal/app"
	"github.com/pairline/pairline/internal/core"
	"github.com/pairline/pairline/internal/directory"
	"github.com/pairline/pairline/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const writeWait = 5 * time.Second

// Controller terminates the WebSocket transport and feeds decoded
// events into the broker. One instance serves all connections.
type Controller struct {
	Broker    *app.Broker
	Auth      core.SessionValidator
	Directory *directory.Directory
	Limiter   *ChatRateLimiter

	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(broker *app.Broker, auth core.SessionValidator, dir *directory.Directory, limiter *ChatRateLimiter, readLimit int64, pingPeriod time.Duration) *Controller {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Broker:     broker,
		Auth:       auth,
		Directory:  dir,
		Limiter:    limiter,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

// wsConn is the per-connection transport endpoint the broker pushes
// to. Sends go through a buffered channel drained by the write pump;
// a full buffer means the frame is dropped, never blocked on.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection's pumps. Every
// connection gets a fresh participant id; the client-token cookie only
// correlates reconnects in the logs.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	pid := domain.NewParticipantID()
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	log.Info().Str("module", "signal").
		Str("pid", string(pid)).
		Str("ct", c.GetString("client_token")).
		Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, pid, conn)
}
