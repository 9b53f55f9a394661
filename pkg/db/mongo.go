// Initialization of the MongoDB client holding chats, messages and users of Mechat.

package db

import (
	"Mechat/internal/config"
	"Mechat/pkg/log"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoDB wraps the mongo client and the Mechat database handle.
type MongoDB struct {
	client     *mongo.Client
	database   *mongo.Database
	maxRetries int
}

// Client returns the mongo client wrapped by MongoDB.
func (db *MongoDB) Client() *mongo.Client {
	return db.client
}

// Database returns the Mechat database handle.
func (db *MongoDB) Database() *mongo.Database {
	return db.database
}

// Collection is a shortcut to a collection of the Mechat database.
func (db *MongoDB) Collection(name string) *mongo.Collection {
	return db.database.Collection(name)
}

// GetMaxRetries returns the number of allowed retries of an optimistic update.
func (db *MongoDB) GetMaxRetries() int {
	return db.maxRetries
}

// Returns a new MongoDB connection wrapped up by MongoDB struct.
// Writes wait for majority acknowledgement and are retried once by the driver.
func NewMongoConnection(ctx context.Context, logger log.Logger, cfg config.Config) (*MongoDB, error) {
	if cfg.MongoURI == "" {
		logger.WithCtx(ctx).Error().Msg("Improper Mongo environment variables")
		return nil, errors.New("improper Environment variables")
	}
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority()).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(45 * time.Second)

	client, cnterr := mongo.Connect(ctx, opts)
	if cnterr != nil {
		logger.WithCtx(ctx).Error().Err(cnterr).Msg("Error occured during mongo.Connect() in db.NewMongoConnection")
		return nil, cnterr
	}
	maxRetries := cfg.TxMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &MongoDB{client: client, database: client.Database(cfg.MongoDB), maxRetries: maxRetries}, nil
}

// Helper to check connection status of the mongo client, pings the primary.
func (db *MongoDB) CheckDbConnection(ctx context.Context, logger log.Logger) error {
	logger.WithCtx(ctx).Info().Msg("Checking Mongo Connection . . .")
	if cnterr := db.client.Ping(ctx, readpref.Primary()); cnterr != nil {
		logger.WithCtx(ctx).Error().Err(cnterr).Msg("Mongo client couldn't PING the primary.")
		return cnterr
	}
	logger.WithCtx(ctx).Info().Msgf("Connection to Mongo Successful, database: %s", db.database.Name())
	return nil
}

// Helper to drop the test database after finishing Mechat tests.
func (db *MongoDB) CleanTestDbData(ctx context.Context, logger log.Logger) {
	if dberr := db.database.Drop(ctx); dberr != nil {
		logger.Error().Err(dberr).Msg("Error occured during the execution of Drop() in db.CleanTestDbData")
	}
}

// Helper to disconnect the mongo client, should be called before closing the server.
func (db *MongoDB) CloseDbConnection(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}
