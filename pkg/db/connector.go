// Initialization of Redis client to be used internally in Mechat.

package db

import (
	"Mechat/internal/config"
	"Mechat/pkg/log"
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisDB represents a redis client connection to be used internally in Mechat.
type RedisDB struct {
	client       *redis.Client
	txMaxRetries int
}

// Client returns the redis client wrapped by RedisDB.
func (db *RedisDB) Client() *redis.Client {
	return db.client
}

// GetMaxRetries returns the number of allowed retries in a watched redis transaction
func (db *RedisDB) GetMaxRetries() int {
	return db.txMaxRetries
}

// Returns a new Redis DB connection wrapped up by RedisDB struct.
func NewDbConnection(ctx context.Context, logger log.Logger, cfg config.Config) (*RedisDB, error) {
	if cfg.RedisAddr == "" || cfg.RedisPort == "" {
		logger.WithCtx(ctx).Error().Msg("Improper Redis environment variables")
		return nil, errors.New("improper Environment variables")
	}
	maxRetries := cfg.TxMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	// Initializing a connection to Redis-server
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDBNumber,
	})
	return &RedisDB{client: client, txMaxRetries: maxRetries}, nil
}

// Helper to check connection status of redis client to redis-server.
// Equivalent to a PING request on redis-server, returns PONG on success.
func (db *RedisDB) CheckDbConnection(ctx context.Context, logger log.Logger) error {
	logger.WithCtx(ctx).Info().Msg("Checking Redis Connection . . .")
	// Pinging the Redis-server to check connection status
	cnterr := db.Client().Ping(ctx).Err()
	if cnterr != nil {
		// Most likely, DB connection failure
		logger.WithCtx(ctx).Error().Err(cnterr).Msg("Redis client couldn't PING the redis-server.")
		return cnterr
	}
	// Connection successful
	logger.WithCtx(ctx).Info().Msg("Connection to Redis Successful")
	return nil
}

// Helper to clean up test db after finishing Mechat tests.
func (db *RedisDB) CleanTestDbData(ctx context.Context, logger log.Logger) {
	if db.Client().Options().DB == 1 {
		dberr := db.Client().FlushDB(ctx).Err()
		if dberr != nil {
			// Error during flushing test db
			logger.Error().Err(dberr).Msg("Error occured during the execution of FlushDB() in db.CleanTestDbData")
		}
	}
}

// Helper to close the RedisDB client, should be called before closing the server.
func (db *RedisDB) CloseDbConnection(ctx context.Context) error {
	return db.Client().Close()
}
