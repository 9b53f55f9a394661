// Metrics repository encapsulates the data access logic (interactions with the DB) related to relay Metrics in Mechat.

package metrics

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/pkg/db"
	"Mechat/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

var metricsDbKey string = "mechat:metrics"

type Repository interface {
	// Get Mechat relay Metrics data
	GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error)
	// Count one more accepted socket
	IncrConnections(ctx context.Context, logger log.Logger) error
	// Raise the peak to active if it is higher than the stored one
	RaisePeak(ctx context.Context, logger log.Logger, active int64) error
}

// repository struct of metrics Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of metrics repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func (r repository) GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error) {
	// check if metrics data is available in the db
	available, dberr := r.db.Client().Exists(ctx, metricsDbKey).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in metrics.GetMetrics")
		return entity.Metrics{}, errors.InternalServerError("")
	} else if available == 0 {
		// no metrics data is available
		return entity.Metrics{}, nil
	}
	var metrics entity.Metrics
	if dberr = r.db.Client().HGetAll(ctx, metricsDbKey).Scan(&metrics); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in metrics.GetMetrics")
		return entity.Metrics{}, errors.InternalServerError("")
	}
	return metrics, nil
}

func (r repository) IncrConnections(ctx context.Context, logger log.Logger) error {
	if dberr := r.db.Client().HIncrBy(ctx, metricsDbKey, "connections_opened", 1).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HIncrBy() in metrics.IncrConnections")
		return errors.InternalServerError("")
	}
	return nil
}

// Several relay instances may raise the peak at once, the compare and set runs in a watched transaction.
func (r repository) RaisePeak(ctx context.Context, logger log.Logger, active int64) error {
	txferr := func(key string) error {
		txf := func(tx *redis.Tx) error {
			peak, dberr := tx.HGet(ctx, key, "peak_connections").Int64()
			if dberr != nil && dberr != redis.Nil {
				return dberr
			}
			if active <= peak {
				// nothing to raise
				return nil
			}
			// Operation is commited only if the watched keys remain unchanged
			_, dberr = tx.TxPipelined(ctx, func(client redis.Pipeliner) error {
				client.HSet(ctx, key, "peak_connections", active)
				return nil
			})
			return dberr
		}
		for i := 0; i < r.db.GetMaxRetries(); i++ {
			dberr := r.db.Client().Watch(ctx, txf, key)
			if dberr == nil {
				return nil
			} else if dberr == redis.TxFailedErr {
				// Optimistic lock lost. Retry.
				continue
			}
			// Return any other error.
			return dberr
		}
		return errors.New("peak update reached maximum number of retries")
	}(metricsDbKey)
	if txferr != nil {
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in RaisePeak transaction")
		return errors.InternalServerError("")
	}
	return nil
}
