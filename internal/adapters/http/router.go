package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/pairline/pairline/internal/adapters/signal"
	"github.com/pairline/pairline/internal/config"
)

// ClientTokenMiddleware hands every browser a stable client token so
// reconnects of the same client can be correlated in the logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PairlineSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The ICE set both peers will negotiate against; the server never
	// touches media itself.
	iceServers := lo.Map(cfg.ICEServers, func(s config.ICEServer, _ int) webrtc.ICEServer {
		return webrtc.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential}
	})

	api := r.Group("/api")

	api.GET("/rtc-config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": iceServers})
	})

	api.GET("/stats", func(c *gin.Context) {
		stats := ctl.Broker.Stats()
		c.JSON(http.StatusOK, gin.H{
			"participants":   stats.Participants,
			"waiting":        stats.Waiting,
			"activePairings": stats.ActivePairings,
			"online":         ctl.Directory.OnlineCount(),
		})
	})

	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws endpoint hit")
		ctl.HandleWS(ctx, c)
	})

	return r
}
