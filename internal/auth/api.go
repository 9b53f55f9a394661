// Exposes the REST APIs related to User authentication in Mechat.

package auth

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package auth onto the gin server.
func APIHandlers(router *gin.Engine, authWithAcc gin.HandlerFunc, logger log.Logger) {
	authGroup := router.Group("/api/v1/auth")
	{
		authGroup.GET("/validate_token", authWithAcc, validateToken(logger))
		authGroup.POST("/logout", authWithAcc, logout(logger))
	}
}

// validateToken returns a handler which echoes the authenticated user back.
func validateToken(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		usr, ok := gctx.Value("User").(entity.User)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error in auth.validateToken")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    usr,
		})
	}
}

// logout returns a handler which clears the mechat-token cookie.
func logout(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.SetSameSite(http.SameSiteNoneMode)
		gctx.SetCookie(TokenCookie, "", -1, "/", "", true, true)
		logger.WithCtx(gctx).Debug().Msg("User logged out")
		gctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Logged out successfully",
		})
	}
}
