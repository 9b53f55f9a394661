// The main file of Mechat.

package main

import (
	"Mechat/internal/config"
	"Mechat/internal/relay"
	"Mechat/pkg/broker"
	"Mechat/pkg/cleanup"
	"Mechat/pkg/db"
	"Mechat/pkg/globalcontext"
	"Mechat/pkg/log"
	"Mechat/pkg/middlewares"
	"Mechat/pkg/validations"
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// Indicates the current version of Mechat, VERSION overrides it.
var Version = "1.0.0"

func main() {
	ctx := context.Background()
	logger := log.New(Version)

	// Loads config/<env>.env if present, the process environment wins otherwise
	if enverr := config.LoadEnvFile(os.Getenv("ENV")); enverr != nil {
		logger.Fatal().Err(enverr).Msg("os couldn't load the env file.")
	}
	cfg, cfgerr := config.Load()
	if cfgerr == nil {
		cfgerr = cfg.Validate()
	}
	if cfgerr != nil {
		logger.Fatal().Err(cfgerr).Msg("Improper Mechat configuration.")
	}
	logger = log.New(cfg.Version)

	logger.Info().Msgf("Welcome to Mechat: v%s", cfg.Version)
	logger.Info().Msgf("Mechat Environment: %s", cfg.Env)

	// This is the preferred mode used by gin server in DEV environment.
	if cfg.Env == "DEV" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Redis holds the presence mirror
	redisDB, dberr := db.NewDbConnection(ctx, logger, cfg)
	if dberr != nil {
		logger.Fatal().Err(dberr).Msg("Couldn't create the Redis client.")
	}
	if dberr = redisDB.CheckDbConnection(ctx, logger); dberr != nil {
		logger.Fatal().Err(dberr).Msg("Redis client couldn't PING the redis-server.")
	}
	// MongoDB holds users and messages
	mongoDB, dberr := db.NewMongoConnection(ctx, logger, cfg)
	if dberr != nil {
		logger.Fatal().Err(dberr).Msg("Couldn't create the Mongo client.")
	}
	if dberr = mongoDB.CheckDbConnection(ctx, logger); dberr != nil {
		logger.Fatal().Err(dberr).Msg("Mongo client couldn't PING the primary.")
	}
	// Domain events are exported only when NATS is configured
	var publisher broker.Publisher = broker.Noop{}
	if cfg.NatsURL != "" {
		natsBroker, cnterr := broker.NewNatsConnection(ctx, logger, cfg.NatsURL, "mechat-relay")
		if cnterr != nil {
			logger.Fatal().Err(cnterr).Msg("Couldn't connect to NATS.")
		}
		publisher = natsBroker
	}

	validations.RegisterCustomValidations(ctx, logger)

	// Presence is rebuilt from zero, stale entries of a previous run are dropped
	presence := relay.NewRepository(redisDB)
	if dberr = presence.Reset(ctx, logger); dberr != nil {
		logger.Warn().Err(dberr).Msg("Couldn't reset the presence mirror.")
	}
	hub := relay.NewHub(logger, presence)
	go hub.Listen(ctx)

	// Initializing the gin server.
	server := gin.New()
	server.Use(globalcontext.UniqueIDMiddleware(logger))
	server.Use(middlewares.CorrelationMiddleware(logger))
	// Forcing gin to use custom Logger instead of the default one.
	server.Use(log.LoggerGinExtension(logger))
	server.Use(gin.Recovery())
	server.Use(middlewares.CORSMiddleware(cfg.ClientURLs))

	// Running Router() which routes all of the REST API groups and paths.
	Router(server, cfg, logger, hub, redisDB, mongoDB, publisher)

	// Running the server with defined addr and port.
	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: server,
	}

	// ListenAndServe is a blocking operation, putting it a goroutine
	go func() {
		logger.Info().Msgf("Mechat service running at: %s", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Error in ListenAndServe()")
		}
	}()

	// Graceful shutdown of Mechat server triggered due to system interruptions.
	wait := cleanup.GracefulShutdown(ctx, logger, 5*time.Second, map[string]cleanup.Operation{
		"Gin":          srv.Shutdown,
		"Relay-hub":    hub.Close,
		"Redis-server": redisDB.CloseDbConnection,
		"Mongo":        mongoDB.CloseDbConnection,
		"NATS":         publisher.Close,
	})
	<-wait
}
