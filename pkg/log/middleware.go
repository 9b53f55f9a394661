// Gin access logging through the Mechat Logger.

package log

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoggerGinExtension replaces gin's default access log with structured zerolog events.
// Upgraded websocket requests only return when the socket closes, they are logged as sessions.
func LoggerGinExtension(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		upgrade := c.GetHeader("Upgrade") == "websocket"

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		reqLogger := logger.WithCtx(c)

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = reqLogger.Error()
		case status >= http.StatusBadRequest:
			event = reqLogger.Warn()
		default:
			event = reqLogger.Info()
		}
		event = event.
			Str("client", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status)
		if errmsg := c.Errors.ByType(gin.ErrorTypePrivate).String(); errmsg != "" {
			event = event.Str("errors", errmsg)
		}
		if upgrade && status == http.StatusSwitchingProtocols {
			event.Dur("session", elapsed.Truncate(time.Second)).Msg("Socket session")
			return
		}
		event.Dur("latency", elapsed).Int("bytes", c.Writer.Size()).Msg("Request")
	}
}
