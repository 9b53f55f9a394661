// Context middleware is used in gin to populate request context with unique ID.
// This ID will be helpful in debugging issues happening for a request in handler chain.

package globalcontext

import (
	"Mechat/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response header echoing the request id.
const RequestIDHeader = "X-Request-ID"

// This middleware will be used to populate every incoming request's context with an Unique UUID.
// This middleware will be used as a global one, log.Logger.WithCtx picks the id up as ReqID.
func UniqueIDMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		rqId, uuiderr := uuid.NewRandom()
		if uuiderr != nil {
			logger.Error().Err(uuiderr).Msg("Error during generating UUID for ReqID.")
		} else {
			gctx.Set("ReqID", rqId.String())
			gctx.Writer.Header().Set(RequestIDHeader, rqId.String())
		}
		gctx.Next()
	}
}
