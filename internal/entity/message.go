// Structure of Message Model in Mechat.

package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// Saved in DB as a document of the messages collection.
type Message struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Content       string              `json:"content" bson:"content"`
	MessageType   string              `json:"messageType" bson:"messageType"`
	SystemType    *string             `json:"systemType" bson:"systemType"`
	Attachments   []Attachment        `json:"attachments" bson:"attachments"`
	Sender        primitive.ObjectID  `json:"sender" bson:"sender"`
	Chat          primitive.ObjectID  `json:"chat" bson:"chat"`
	Reactions     []Reaction          `json:"reactions" bson:"reactions"`
	ReplyTo       *primitive.ObjectID `json:"replyTo" bson:"replyTo"`
	IsForwarded   bool                `json:"isForwarded" bson:"isForwarded"`
	ForwardedFrom *primitive.ObjectID `json:"forwardedFrom" bson:"forwardedFrom"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Attachment uploaded to the asset host, only its reference is stored.
type Attachment struct {
	PublicID string `json:"public_id" bson:"public_id" valid:"required"`
	URL      string `json:"url" bson:"url" valid:"required,url"`
}

// A single (user, emoji) pair on a message.
type Reaction struct {
	User  primitive.ObjectID `json:"user" bson:"user"`
	Emoji string             `json:"emoji" bson:"emoji"`
}

// ToggleReaction removes the (user, emoji) pair if the message already carries it,
// otherwise appends it. Returns true when the pair was added.
func (m *Message) ToggleReaction(user primitive.ObjectID, emoji string) bool {
	for i, r := range m.Reactions {
		if r.User == user && r.Emoji == emoji {
			m.Reactions = append(m.Reactions[:i:i], m.Reactions[i+1:]...)
			return false
		}
	}
	m.Reactions = append(m.Reactions, Reaction{User: user, Emoji: emoji})
	return true
}

// ForwardTo copies content and attachments of m into a new message of chat,
// flagged as forwarded from the source chat.
func (m Message) ForwardTo(chat, sender primitive.ObjectID) Message {
	from := m.Chat
	attachments := make([]Attachment, len(m.Attachments))
	copy(attachments, m.Attachments)
	return Message{
		Content:       m.Content,
		MessageType:   MessageTypeText,
		Attachments:   attachments,
		Sender:        sender,
		Chat:          chat,
		Reactions:     []Reaction{},
		IsForwarded:   true,
		ForwardedFrom: &from,
	}
}

// Realtime converts a stored message into the shape pushed over the socket.
func (m Message) Realtime(sender UserRef) RealtimeMessage {
	rm := RealtimeMessage{
		ID:          m.ID.Hex(),
		Content:     m.Content,
		Attachments: m.Attachments,
		Sender:      sender,
		Chat:        m.Chat.Hex(),
		IsForwarded: m.IsForwarded,
		CreatedAt:   m.CreatedAt,
	}
	if rm.Attachments == nil {
		rm.Attachments = []Attachment{}
	}
	if m.ReplyTo != nil {
		rm.ReplyTo = m.ReplyTo.Hex()
	}
	if m.ForwardedFrom != nil {
		rm.ForwardedFrom = m.ForwardedFrom.Hex()
	}
	return rm
}

// RealtimeMessage is the message as seen by connected clients.
type RealtimeMessage struct {
	ID            string       `json:"_id"`
	Content       string       `json:"content"`
	Attachments   []Attachment `json:"attachments"`
	Sender        UserRef      `json:"sender"`
	Chat          string       `json:"chat"`
	ReplyTo       string       `json:"replyTo,omitempty"`
	IsForwarded   bool         `json:"isForwarded"`
	ForwardedFrom string       `json:"forwardedFrom,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}
