// Service layer of the Mechat relay, turns inbound socket events into persistence calls and fan-out.

package relay

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/internal/message"
	"Mechat/internal/user"
	"Mechat/pkg/broker"
	"Mechat/pkg/log"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	// HandleEvent applies a single inbound event sent by user.
	// The returned error is for logging only, clients never see it.
	HandleEvent(ctx context.Context, user entity.User, in entity.InboundEvent) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	hub            *Hub
	messages       message.Repository
	users          user.Repository
	publisher      broker.Publisher
	persistTimeout time.Duration
	logger         log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(hub *Hub, messages message.Repository, users user.Repository, publisher broker.Publisher, persistTimeout time.Duration, logger log.Logger) Service {
	if publisher == nil {
		publisher = broker.Noop{}
	}
	return service{hub, messages, users, publisher, persistTimeout, logger}
}

func (s service) HandleEvent(ctx context.Context, usr entity.User, in entity.InboundEvent) error {
	switch in.Event {
	case entity.EventNewMessage:
		return s.newMessage(ctx, usr, in.Data)
	case entity.EventAlert:
		return s.alert(ctx, usr, in.Data)
	case entity.EventStartTyping, entity.EventStopTyping:
		return s.typing(ctx, usr, in.Event, in.Data)
	case entity.EventChatJoined, entity.EventChatLeaved:
		return s.presence(ctx, usr, in.Event, in.Data)
	case entity.EventReact:
		return s.react(ctx, usr, in.Data)
	case entity.EventDelete:
		return s.delete(ctx, usr, in.Data)
	case entity.EventForward:
		return s.forward(ctx, usr, in.Data)
	}
	s.logger.WithCtx(ctx).Warn().Str("event", string(in.Event)).Str("user", usr.IDHex()).Msg("Ignoring unknown socket event")
	return errors.BadRequest("Unknown event")
}

// Persists first, so clients only ever see stored messages carrying their real id.
func (s service) newMessage(ctx context.Context, usr entity.User, raw json.RawMessage) error {
	var req entity.NewMessageRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		return errors.BadRequest("Message can't be empty")
	}
	for i := range req.Attachments {
		if err := validate(&req.Attachments[i]); err != nil {
			return err
		}
	}
	chatID, _ := primitive.ObjectIDFromHex(req.ChatID)
	msg := entity.Message{
		Content:     req.Message,
		Attachments: req.Attachments,
		Sender:      usr.ID,
		Chat:        chatID,
	}
	if req.ReplyTo != "" {
		replyTo, _ := primitive.ObjectIDFromHex(req.ReplyTo)
		msg.ReplyTo = &replyTo
	}

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.messages.CreateMessage(pctx, s.logger, &msg); err != nil {
		return err
	}

	s.hub.Publish(ctx, req.Members, entity.EventNewMessage, entity.NewMessagePayload{
		ChatID:  req.ChatID,
		Message: msg.Realtime(usr.Ref()),
	})
	s.hub.Publish(ctx, req.Members, entity.EventNewMessageAlert, entity.ChatPayload{ChatID: req.ChatID})
	s.export(ctx, req.ChatID, entity.EventNewMessage, msg)
	return nil
}

// Background change notification, nothing is persisted here.
func (s service) alert(ctx context.Context, usr entity.User, raw json.RawMessage) error {
	var req entity.AlertRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	if req.Background == nil || req.Background.Type == "" {
		// nothing changed
		return nil
	}
	if err := validate(req.Background); err != nil {
		return err
	}
	s.hub.Publish(ctx, req.Members, entity.EventAlert, entity.AlertPayload{
		ChatID:     req.ChatID,
		Background: *req.Background,
		Sender:     usr.Ref(),
	})
	return nil
}

func (s service) typing(ctx context.Context, usr entity.User, kind entity.EventKind, raw json.RawMessage) error {
	var req entity.TypingRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	s.hub.PublishExcept(ctx, req.Members, usr.IDHex(), kind, entity.ChatPayload{ChatID: req.ChatID})
	return nil
}

// The online-set is keyed by the authenticated user, a client supplied userId is ignored.
func (s service) presence(ctx context.Context, usr entity.User, kind entity.EventKind, raw json.RawMessage) error {
	var req entity.PresenceRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	if req.UserID != "" && req.UserID != usr.IDHex() {
		s.logger.WithCtx(ctx).Debug().Str("user", usr.IDHex()).Str("claimed", req.UserID).Msg("Ignoring foreign userId in presence event")
	}
	if kind == entity.EventChatJoined {
		s.hub.JoinChat(ctx, usr.IDHex(), req.Members)
	} else {
		s.hub.LeaveChat(ctx, usr.IDHex(), req.Members)
	}
	return nil
}

func (s service) react(ctx context.Context, usr entity.User, raw json.RawMessage) error {
	var req entity.ReactionRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	messageID, _ := primitive.ObjectIDFromHex(req.MessageID)

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	msg, err := s.messages.ToggleReaction(pctx, s.logger, messageID, usr.ID, req.Emoji)
	if err != nil {
		return err
	}

	payload := entity.ReactionPayload{
		MessageID: req.MessageID,
		Reactions: s.populateReactions(pctx, msg.Reactions),
		ChatID:    req.ChatID,
	}
	s.hub.Publish(ctx, req.Members, entity.EventReaction, payload)
	s.export(ctx, req.ChatID, entity.EventReaction, payload)
	return nil
}

// Resolves reacting users' names, a failed lookup leaves names empty rather than dropping the event.
func (s service) populateReactions(ctx context.Context, reactions []entity.Reaction) []entity.ReactionView {
	ids := make([]primitive.ObjectID, 0, len(reactions))
	seen := make(map[primitive.ObjectID]bool, len(reactions))
	for _, r := range reactions {
		if !seen[r.User] {
			seen[r.User] = true
			ids = append(ids, r.User)
		}
	}
	users, err := s.users.GetUsers(ctx, s.logger, ids)
	if err != nil {
		s.logger.WithCtx(ctx).Warn().Err(err).Msg("Couldn't populate reaction authors")
	}
	views := make([]entity.ReactionView, 0, len(reactions))
	for _, r := range reactions {
		ref := entity.UserRef{ID: r.User.Hex()}
		if u, ok := users[r.User]; ok {
			ref.Name = u.Name
		}
		views = append(views, entity.ReactionView{User: ref, Emoji: r.Emoji})
	}
	return views
}

// Only the sender may delete, anything else is silently ignored.
func (s service) delete(ctx context.Context, usr entity.User, raw json.RawMessage) error {
	var req entity.DeleteRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	messageID, _ := primitive.ObjectIDFromHex(req.MessageID)

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.messages.DeleteMessage(pctx, s.logger, messageID, usr.ID); err != nil {
		return err
	}

	payload := entity.DeletePayload{MessageID: req.MessageID, ChatID: req.ChatID}
	s.hub.Publish(ctx, req.Members, entity.EventDelete, payload)
	s.export(ctx, req.ChatID, entity.EventDelete, payload)
	return nil
}

// Copies the source message into the destination chat, the source is left untouched.
func (s service) forward(ctx context.Context, usr entity.User, raw json.RawMessage) error {
	var req entity.ForwardRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	messageID, _ := primitive.ObjectIDFromHex(req.MessageID)
	toChatID, _ := primitive.ObjectIDFromHex(req.ToChatID)

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	src, err := s.messages.GetMessage(pctx, s.logger, messageID)
	if err != nil {
		return err
	}
	fwd := src.ForwardTo(toChatID, usr.ID)
	if err := s.messages.CreateMessage(pctx, s.logger, &fwd); err != nil {
		return err
	}

	s.hub.Publish(ctx, req.Members, entity.EventNewMessage, entity.NewMessagePayload{
		ChatID:  req.ToChatID,
		Message: fwd.Realtime(usr.Ref()),
	})
	s.export(ctx, req.ToChatID, entity.EventForward, fwd)
	return nil
}

// Exports a persisted event to the broker, failures are logged only.
func (s service) export(ctx context.Context, chatID string, kind entity.EventKind, payload any) {
	subject := broker.Subject("mechat", "events", chatID, string(kind))
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.logger.WithCtx(ctx).Error().Err(err).Str("subject", subject).Msg("Couldn't export event")
	}
}

// decode unmarshals raw into req and validates it with its govalidator tags.
func decode(raw json.RawMessage, req any) error {
	if len(raw) == 0 {
		return errors.BadRequest("Missing event data")
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return errors.UnprocessableEntity("Malformed event data")
	}
	return validate(req)
}

func validate(req any) error {
	if _, valerr := govalidator.ValidateStruct(req); valerr != nil {
		if errs, ok := valerr.(govalidator.Errors); ok {
			return errors.GenerateValidationErrorResponse(errs.Errors())
		}
		return errors.BadRequest(valerr.Error())
	}
	return nil
}
