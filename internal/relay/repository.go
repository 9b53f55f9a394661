// Presence repository mirrors the hub's connection registry and online-set into Redis.
// Helpful for ops tooling and for rebuilding from zero when a new instance starts.

package relay

import (
	"Mechat/internal/errors"
	"Mechat/pkg/db"
	"Mechat/pkg/log"
	"context"
	"sort"

	"github.com/go-redis/redis/v8"
)

const (
	clientsDbKey = "mechat:ws_clients"
	onlineDbKey  = "mechat:online_users"
)

type Repository interface {
	// AddClient adds a connected user id to the DB.
	AddClient(ctx context.Context, logger log.Logger, userID string) error
	// AddOnline adds a user id to the online-set.
	AddOnline(ctx context.Context, logger log.Logger, userID string) error
	// RemoveOnline removes a user id from the online-set.
	RemoveOnline(ctx context.Context, logger log.Logger, userID string) error
	// Forget removes a disconnected user from both sets atomically.
	Forget(ctx context.Context, logger log.Logger, userID string) error
	// Clients returns the connected user ids, sorted.
	Clients(ctx context.Context, logger log.Logger) ([]string, error)
	// Online returns the online-set, sorted.
	Online(ctx context.Context, logger log.Logger) ([]string, error)
	// Reset clears both sets, presence is rebuilt from zero after a restart.
	Reset(ctx context.Context, logger log.Logger) error
}

// repository struct of presence Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of presence repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Returns nil if the user got successfully added into the DB.
func (r repository) AddClient(ctx context.Context, logger log.Logger, userID string) error {
	return r.sadd(ctx, logger, clientsDbKey, userID, "relay.AddClient")
}

func (r repository) AddOnline(ctx context.Context, logger log.Logger, userID string) error {
	return r.sadd(ctx, logger, onlineDbKey, userID, "relay.AddOnline")
}

func (r repository) RemoveOnline(ctx context.Context, logger log.Logger, userID string) error {
	if dberr := r.db.Client().SRem(ctx, onlineDbKey, userID).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of SRem in relay.RemoveOnline")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) Forget(ctx context.Context, logger log.Logger, userID string) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(client redis.Pipeliner) error {
		client.SRem(ctx, clientsDbKey, userID)
		client.SRem(ctx, onlineDbKey, userID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of TxPipelined in relay.Forget")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) Clients(ctx context.Context, logger log.Logger) ([]string, error) {
	return r.smembers(ctx, logger, clientsDbKey, "relay.Clients")
}

func (r repository) Online(ctx context.Context, logger log.Logger) ([]string, error) {
	return r.smembers(ctx, logger, onlineDbKey, "relay.Online")
}

func (r repository) Reset(ctx context.Context, logger log.Logger) error {
	if dberr := r.db.Client().Del(ctx, clientsDbKey, onlineDbKey).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of Del in relay.Reset")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) sadd(ctx context.Context, logger log.Logger, key, member, caller string) error {
	if dberr := r.db.Client().SAdd(ctx, key, member).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msgf("Error occured during execution of SAdd in %s", caller)
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) smembers(ctx context.Context, logger log.Logger, key, caller string) ([]string, error) {
	members, dberr := r.db.Client().SMembers(ctx, key).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msgf("Error occured during execution of SMembers in %s", caller)
		return nil, errors.InternalServerError("")
	}
	sort.Strings(members)
	return members, nil
}
