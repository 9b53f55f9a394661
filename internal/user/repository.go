// User repository encapsulates the data access logic (interactions with the DB) related to Users in Mechat.

package user

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/pkg/db"
	"Mechat/pkg/log"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type Repository interface {
	// GetUser returns the user with the given hex id if exists.
	GetUser(ctx context.Context, logger log.Logger, id string) (entity.User, error)
	// GetUsers returns the users found among ids, keyed by id. Unknown ids are skipped.
	GetUsers(ctx context.Context, logger log.Logger, ids []primitive.ObjectID) (map[primitive.ObjectID]entity.User, error)
}

// repository struct of user Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.MongoDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.MongoDB) Repository {
	return repository{db: dbwrp}
}

// Only the public profile is ever loaded, credentials stay in the DB.
var profileProjection = bson.M{"name": 1, "username": 1, "avatar": 1}

// Returns the user data object if user with the given id is found in the DB.
func (r repository) GetUser(ctx context.Context, logger log.Logger, id string) (entity.User, error) {
	user := entity.User{}
	oid, prserr := primitive.ObjectIDFromHex(id)
	if prserr != nil {
		// Not an ObjectID, can't be one of ours
		return user, errors.NotFound("User not available")
	}
	dberr := r.db.Collection(usersCollection).
		FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(profileProjection)).
		Decode(&user)
	if dberr == mongo.ErrNoDocuments {
		// User not available
		return user, errors.NotFound("User not available")
	} else if dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of mongo.FindOne() in user.GetUser")
		return user, errors.InternalServerError("")
	}
	return user, nil
}

// Returns the users matching ids, used to populate reaction authors.
func (r repository) GetUsers(ctx context.Context, logger log.Logger, ids []primitive.ObjectID) (map[primitive.ObjectID]entity.User, error) {
	users := make(map[primitive.ObjectID]entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cursor, dberr := r.db.Collection(usersCollection).
		Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(profileProjection))
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of mongo.Find() in user.GetUsers")
		return users, errors.InternalServerError("")
	}
	var found []entity.User
	if dberr = cursor.All(ctx, &found); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of cursor.All() in user.GetUsers")
		return users, errors.InternalServerError("")
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}
