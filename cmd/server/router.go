// List of all REST API endpoints being used by Mechat can be found here.

package main

import (
	"Mechat/internal/auth"
	"Mechat/internal/config"
	"Mechat/internal/message"
	"Mechat/internal/metrics"
	"Mechat/internal/relay"
	"Mechat/internal/user"
	"Mechat/pkg/broker"
	"Mechat/pkg/db"
	"Mechat/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func Router(router *gin.Engine, cfg config.Config, logger log.Logger, hub *relay.Hub, redisDB *db.RedisDB, mongoDB *db.MongoDB, publisher broker.Publisher) {
	// This is the route to default path
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Mechat!")
	})
	// Reports whether both backing stores answer
	router.GET("/api/v1/health", func(c *gin.Context) {
		if redisDB.CheckDbConnection(c, logger) != nil || mongoDB.CheckDbConnection(c, logger) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	// Repositories needed by APIs and services to work
	userRepo := user.NewRepository(mongoDB)
	messageRepo := message.NewRepository(mongoDB)
	metricsRepo := metrics.NewRepository(redisDB)

	// Middleware resolving the mechat-token cookie to a user
	authWithAcc := auth.AuthMiddleware(logger, userRepo, cfg.JWTSecret)

	// Register internal package auth handler
	auth.APIHandlers(router, authWithAcc, logger)

	// Register internal package user handler
	userService := user.NewService(userRepo, logger)
	user.APIHandlers(router, userService, authWithAcc, logger)

	// Register internal package metrics handler
	metricsService := metrics.NewService(metricsRepo, logger)
	metrics.APIHandlers(router, metricsService, authWithAcc, logger)

	// Register internal package relay handler
	relayService := relay.NewService(hub, messageRepo, userRepo, publisher, cfg.PersistTimeout, logger)
	relay.APIHandlers(router, hub, relayService, metricsService, authWithAcc, cfg.ClientURLs, cfg.SocketSendBuffer, logger)
}
