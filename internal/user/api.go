// Exposes all of the REST APIs related to User Model in Mechat.

package user

import (
	"Mechat/internal/errors"
	"Mechat/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package user onto the gin server.
func APIHandlers(router *gin.Engine, service Service, authWithAcc gin.HandlerFunc, logger log.Logger) {
	usergroup := router.Group("/api/v1/user")
	{
		usergroup.GET("/me", authWithAcc, getUser(service, logger))
	}
}

// getUser returns a handler which takes care of getting user details in Mechat.
// requires auth to access.
func getUser(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		user, err := service.getuser(gctx)
		if err != nil {
			// Error occured, might be not-found or server error
			resp, ok := err.(errors.ErrorResponse)
			if !ok {
				// Type assertion error
				gctx.JSON(http.StatusInternalServerError, errors.InternalServerError(""))
				return
			}
			gctx.JSON(resp.Status, resp)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    user,
		})
	}
}
