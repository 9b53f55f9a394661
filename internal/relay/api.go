// Exposes the socket endpoint and the presence APIs of Mechat.

package relay

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/internal/metrics"
	"Mechat/pkg/log"
	"Mechat/pkg/middlewares"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

// Registers all of the REST API handlers related to internal package relay onto the gin server.
// stats may be nil.
func APIHandlers(router *gin.Engine, hub *Hub, service Service, stats metrics.Service, authWithAcc gin.HandlerFunc, allowedOrigins []string, sendBuffer int, logger log.Logger) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non browser clients send no Origin
			return origin == "" || middlewares.OriginAllowed(allowedOrigins, origin)
		},
	}
	socketGroup := router.Group("/api/v1/socket", authWithAcc)
	{
		socketGroup.GET("", serveSocket(hub, service, stats, upgrader, sendBuffer, logger))
		socketGroup.GET("/online", onlineUsers(hub))
	}
}

// serveSocket upgrades the request and blocks on the read pump until the client leaves.
func serveSocket(hub *Hub, service Service, stats metrics.Service, upgrader websocket.Upgrader, sendBuffer int, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		usr, ok := gctx.Value("User").(entity.User)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error in relay.serveSocket")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		ws, uperr := upgrader.Upgrade(gctx.Writer, gctx.Request, nil)
		if uperr != nil {
			// Upgrade already replied to the client
			logger.WithCtx(gctx).Warn().Err(uperr).Msg("WebSocket upgrade failed")
			return
		}

		c := newConn(xid.New().String(), usr, ws, sendBuffer, logger)
		ctx := gctx.Request.Context()
		hub.RegisterConnection(ctx, usr.IDHex(), c)
		go c.writePump()
		if stats != nil {
			go stats.ConnectionOpened(context.Background(), hub.ConnectionCount(ctx))
		}

		c.readPump(ctx, service)

		hub.Release(ctx, c)
		c.Close()
		logger.WithCtx(gctx).Info().Str("user", usr.IDHex()).Str("conn", c.ID()).Msg("Socket closed")
	}
}

// onlineUsers returns a handler which lists the online-set.
func onlineUsers(hub *Hub) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"users":   hub.OnlineUsers(gctx.Request.Context()),
		})
	}
}
