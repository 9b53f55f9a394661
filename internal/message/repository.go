// Message repository encapsulates the data access logic (interactions with the DB) related to Messages in Mechat.

package message

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/pkg/db"
	"Mechat/pkg/log"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const messagesCollection = "messages"

type Repository interface {
	// CreateMessage stores msg, filling in its id and timestamps.
	CreateMessage(ctx context.Context, logger log.Logger, msg *entity.Message) error
	// GetMessage returns the message with the given id if exists.
	GetMessage(ctx context.Context, logger log.Logger, id primitive.ObjectID) (entity.Message, error)
	// ToggleReaction adds or removes the (user, emoji) pair and returns the updated message.
	ToggleReaction(ctx context.Context, logger log.Logger, id primitive.ObjectID, user primitive.ObjectID, emoji string) (entity.Message, error)
	// DeleteMessage removes the message only if sender authored it.
	DeleteMessage(ctx context.Context, logger log.Logger, id primitive.ObjectID, sender primitive.ObjectID) error
}

// repository struct of message Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.MongoDB
}

// Returns a new instance of message repository for other packages to access its interface.
func NewRepository(dbwrp *db.MongoDB) Repository {
	return repository{db: dbwrp}
}

// Mongo keeps millisecond precision, timestamps are cut there so the
// broadcast copy equals what a later read returns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r repository) CreateMessage(ctx context.Context, logger log.Logger, msg *entity.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.MessageType == "" {
		msg.MessageType = entity.MessageTypeText
	}
	if msg.Attachments == nil {
		msg.Attachments = []entity.Attachment{}
	}
	if msg.Reactions == nil {
		msg.Reactions = []entity.Reaction{}
	}
	msg.CreatedAt = now()
	msg.UpdatedAt = msg.CreatedAt
	if _, dberr := r.db.Collection(messagesCollection).InsertOne(ctx, msg); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of mongo.InsertOne() in message.CreateMessage")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetMessage(ctx context.Context, logger log.Logger, id primitive.ObjectID) (entity.Message, error) {
	msg := entity.Message{}
	dberr := r.db.Collection(messagesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if dberr == mongo.ErrNoDocuments {
		return msg, errors.NotFound("Message not found")
	} else if dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of mongo.FindOne() in message.GetMessage")
		return msg, errors.InternalServerError("")
	}
	return msg, nil
}

// The update is committed only if updatedAt is unchanged since the read,
// a concurrent toggle forces a re-read and retry.
func (r repository) ToggleReaction(ctx context.Context, logger log.Logger, id primitive.ObjectID, user primitive.ObjectID, emoji string) (entity.Message, error) {
	for i := 0; i < r.db.GetMaxRetries(); i++ {
		msg, err := r.GetMessage(ctx, logger, id)
		if err != nil {
			return msg, err
		}
		seen := msg.UpdatedAt
		msg.ToggleReaction(user, emoji)
		if msg.Reactions == nil {
			msg.Reactions = []entity.Reaction{}
		}
		msg.UpdatedAt = now()
		if !msg.UpdatedAt.After(seen) {
			// clock did not move past the guard, force it
			msg.UpdatedAt = seen.Add(time.Millisecond)
		}
		res, dberr := r.db.Collection(messagesCollection).UpdateOne(ctx,
			bson.M{"_id": id, "updatedAt": seen},
			bson.M{"$set": bson.M{"reactions": msg.Reactions, "updatedAt": msg.UpdatedAt}},
		)
		if dberr != nil {
			logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of mongo.UpdateOne() in message.ToggleReaction")
			return msg, errors.InternalServerError("")
		}
		if res.MatchedCount == 1 {
			return msg, nil
		}
		// Optimistic lock lost. Retry.
	}
	logger.WithCtx(ctx).Error().Str("message", id.Hex()).Msg("ToggleReaction reached maximum number of retries")
	return entity.Message{}, errors.InternalServerError("")
}

func (r repository) DeleteMessage(ctx context.Context, logger log.Logger, id primitive.ObjectID, sender primitive.ObjectID) error {
	res, dberr := r.db.Collection(messagesCollection).DeleteOne(ctx, bson.M{"_id": id, "sender": sender})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of mongo.DeleteOne() in message.DeleteMessage")
		return errors.InternalServerError("")
	}
	if res.DeletedCount == 0 {
		// Either missing or authored by someone else, callers treat both the same
		return errors.NotFound("Message not found")
	}
	return nil
}
