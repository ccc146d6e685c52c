package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service owns conversation and message lifecycle.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new conversation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create starts an empty conversation for userID.
func (s *Service) Create(ctx context.Context, userID string) (Conversation, error) {
	c := Conversation{ID: uuid.New().String(), UserID: userID, CreatedAt: s.now().UTC()}
	if err := s.repo.Create(ctx, c); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

// List returns the user's conversations, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Conversation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns an owned conversation with its messages in chronological order.
func (s *Service) Get(ctx context.Context, id, userID string) (Conversation, []Message, error) {
	c, err := s.repo.GetOwned(ctx, id, userID)
	if err != nil {
		return Conversation{}, nil, err
	}
	msgs, err := s.repo.Messages(ctx, c.ID)
	if err != nil {
		return Conversation{}, nil, err
	}
	return c, msgs, nil
}

// Messages returns the messages of an owned conversation.
func (s *Service) Messages(ctx context.Context, id, userID string) ([]Message, error) {
	_, msgs, err := s.Get(ctx, id, userID)
	return msgs, err
}

// AddMessage appends a user message to an owned conversation.
func (s *Service) AddMessage(ctx context.Context, id, userID, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}
	m := s.newMessage(id, content, MessageTypeUser)
	if err := s.repo.AddOwnedMessage(ctx, m, userID); err != nil {
		return Message{}, err
	}
	return m, nil
}

// SaveAssistantMessage appends an AI message. Ownership must already have
// been established by the caller.
func (s *Service) SaveAssistantMessage(ctx context.Context, id, content string) (Message, error) {
	m := s.newMessage(id, content, MessageTypeAI)
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *Service) newMessage(conversationID, content string, kind MessageType) Message {
	return Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        content,
		Type:           kind,
		CreatedAt:      s.now().UTC(),
	}
}
