// Structure of the socket events exchanged between Mechat and its clients.

package entity

import "encoding/json"

// EventKind is the wire name of a socket event.
type EventKind string

const (
	// Inbound and outbound
	EventNewMessage  EventKind = "NEW_MESSAGE"
	EventAlert       EventKind = "ALERT"
	EventStartTyping EventKind = "START_TYPING"
	EventStopTyping  EventKind = "STOP_TYPING"
	EventDelete      EventKind = "MESSAGE_DELETE"

	// Inbound only
	EventChatJoined EventKind = "CHAT_JOINED"
	EventChatLeaved EventKind = "CHAT_LEAVED"
	EventReact      EventKind = "REACT_TO_MESSAGE"
	EventForward    EventKind = "MESSAGE_FORWARD"

	// Outbound only
	EventNewMessageAlert EventKind = "NEW_MESSAGE_ALERT"
	EventOnlineUsers     EventKind = "ONLINE_USERS"
	EventReaction        EventKind = "MESSAGE_REACTION"
)

// Envelope is pushed to a connection handle, one per socket frame.
type Envelope struct {
	Event EventKind `json:"event"`
	Data  any       `json:"data"`
}

// InboundEvent is a frame received from a client, Data is decoded per Event.
type InboundEvent struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Payload of an inbound NEW_MESSAGE.
type NewMessageRequest struct {
	ChatID      string       `json:"chatId" valid:"required,mongoid"`
	Members     []string     `json:"members" valid:"-"`
	Message     string       `json:"message" valid:"-"`
	ReplyTo     string       `json:"replyTo,omitempty" valid:"optional,mongoid"`
	// Checked one by one, govalidator skips struct elements here.
	Attachments []Attachment `json:"attachments,omitempty" valid:"-"`
}

// Chat background descriptor.
type Background struct {
	Type  string `json:"type" bson:"type" valid:"required,in(color|image|default)"`
	Value string `json:"value" bson:"value" valid:"-"`
}

// Payload of an inbound ALERT, the background change notification.
type AlertRequest struct {
	ChatID     string      `json:"chatId" valid:"required,nonblank"`
	Members    []string    `json:"members" valid:"-"`
	Background *Background `json:"background" valid:"-"`
}

// Payload of inbound START_TYPING / STOP_TYPING.
type TypingRequest struct {
	ChatID  string   `json:"chatId" valid:"required,nonblank"`
	Members []string `json:"members" valid:"-"`
}

// Payload of inbound CHAT_JOINED / CHAT_LEAVED.
// UserID is accepted for compatibility, the authenticated identity is used instead.
type PresenceRequest struct {
	UserID  string   `json:"userId" valid:"-"`
	Members []string `json:"members" valid:"-"`
}

// Payload of an inbound REACT_TO_MESSAGE.
type ReactionRequest struct {
	MessageID string   `json:"messageId" valid:"required,mongoid"`
	ChatID    string   `json:"chatId" valid:"required,nonblank"`
	Emoji     string   `json:"emoji" valid:"required,nospace,runelength(1|32)"`
	Members   []string `json:"members" valid:"-"`
}

// Payload of an inbound MESSAGE_DELETE.
type DeleteRequest struct {
	MessageID string   `json:"messageId" valid:"required,mongoid"`
	ChatID    string   `json:"chatId" valid:"required,nonblank"`
	Members   []string `json:"members" valid:"-"`
}

// Payload of an inbound MESSAGE_FORWARD.
type ForwardRequest struct {
	MessageID string   `json:"messageId" valid:"required,mongoid"`
	ToChatID  string   `json:"toChatId" valid:"required,mongoid"`
	Members   []string `json:"members" valid:"-"`
}

// Outbound NEW_MESSAGE.
type NewMessagePayload struct {
	ChatID  string          `json:"chatId"`
	Message RealtimeMessage `json:"message"`
}

// Outbound NEW_MESSAGE_ALERT, START_TYPING and STOP_TYPING.
type ChatPayload struct {
	ChatID string `json:"chatId"`
}

// Outbound ALERT.
type AlertPayload struct {
	ChatID     string     `json:"chatId"`
	Background Background `json:"background"`
	Sender     UserRef    `json:"sender"`
}

// A reaction populated with the reacting user.
type ReactionView struct {
	User  UserRef `json:"user"`
	Emoji string  `json:"emoji"`
}

// Outbound MESSAGE_REACTION, carries the full reaction list after the toggle.
type ReactionPayload struct {
	MessageID string         `json:"messageId"`
	Reactions []ReactionView `json:"reactions"`
	ChatID    string         `json:"chatId"`
}

// Outbound MESSAGE_DELETE.
type DeletePayload struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
}
