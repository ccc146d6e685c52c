package conversation

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for conversations that do not exist or belong to
	// another user. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("conversation not found")
	// ErrOwnerNotFound is returned when creating a conversation for an unknown user.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrEmptyContent rejects blank messages.
	ErrEmptyContent = errors.New("content is required")
)

// MessageType tags who authored a message.
type MessageType string

const (
	MessageTypeUser MessageType = "user"
	MessageTypeAI   MessageType = "ai"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t == MessageTypeUser || t == MessageTypeAI
}

// Conversation is a thread of messages owned by one user.
type Conversation struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Message is a single turn in a conversation.
type Message struct {
	ID             string
	ConversationID string
	Content        string
	Type           MessageType
	CreatedAt      time.Time
}
