// Service layer of the internal package metrics.

package metrics

import (
	"Mechat/internal/entity"
	"Mechat/pkg/log"
	"context"
)

// Service layer of internal package metrics which encapsulates relay counters of Mechat.
type Service interface {
	// get Mechat relay metrics
	GetMetrics(ctx context.Context) (entity.Metrics, error)
	// record an accepted socket, active is the number of users connected right after it
	ConnectionOpened(ctx context.Context, active int)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	metricsRepo Repository
	logger      log.Logger
}

func NewService(metricsRepo Repository, logger log.Logger) Service {
	return service{metricsRepo: metricsRepo, logger: logger}
}

func (s service) GetMetrics(ctx context.Context) (entity.Metrics, error) {
	return s.metricsRepo.GetMetrics(ctx, s.logger)
}

// Failures are logged by the repository, counters never block a connection.
func (s service) ConnectionOpened(ctx context.Context, active int) {
	if s.metricsRepo.IncrConnections(ctx, s.logger) != nil {
		return
	}
	s.metricsRepo.RaisePeak(ctx, s.logger, int64(active))
}
