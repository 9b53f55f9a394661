// Service layer of the internal package user.

package user

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/pkg/log"
	"context"
)

// Service layer of internal package user which encapsulates UserModel logic of Mechat.
type Service interface {
	// Fetches the authenticated user's profile.
	getuser(context.Context) (entity.User, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	userRepo Repository
	logger   log.Logger
}

func NewService(userRepo Repository, logger log.Logger) Service {
	return service{userRepo, logger}
}

func (s service) getuser(ctx context.Context) (entity.User, error) {
	// get the authenticated user from context
	user, ok := ctx.Value("User").(entity.User)
	if !ok {
		// user missing from context
		s.logger.WithCtx(ctx).Error().Msg("Type assertion error in user.getuser")
		return entity.User{}, errors.InternalServerError("")
	}
	// Reload so the response reflects the latest profile
	return s.userRepo.GetUser(ctx, s.logger, user.IDHex())
}
