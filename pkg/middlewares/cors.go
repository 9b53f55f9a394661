package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// This middleware handles CORS policy for Mechat server.
// Only origins present in allowed are echoed back, "*" allows every origin.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		origin := gctx.GetHeader("Origin")
		if origin != "" && OriginAllowed(allowed, origin) {
			gctx.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			gctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			gctx.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
			gctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		}
		gctx.Writer.Header().Add("Vary", "Origin")

		if gctx.Request.Method == http.MethodOptions {
			gctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		gctx.Next()
	}
}

// OriginAllowed reports whether origin is part of the allowlist.
// Shared with the socket upgrader so both surfaces accept the same clients.
func OriginAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
