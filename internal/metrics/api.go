// Exposes the REST APIs related to relay Metrics in Mechat.

package metrics

import (
	"Mechat/internal/errors"
	"Mechat/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package metrics onto the gin server.
func APIHandlers(router *gin.Engine, service Service, authWithAcc gin.HandlerFunc, logger log.Logger) {
	router.GET("/api/v1/metrics", authWithAcc, getMetrics(service, logger))
}

func getMetrics(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		metrics, err := service.GetMetrics(gctx)
		if err != nil {
			gctx.AbortWithStatusJSON(errors.StatusOf(err), err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"metrics": metrics,
		})
	}
}
