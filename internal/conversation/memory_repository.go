package conversation

import (
	"context"
	"sort"
	"sync"
)

type storedMessage struct {
	Message
	seq int64
}

// OwnerCheck reports whether userID names an existing user.
type OwnerCheck func(ctx context.Context, userID string) (bool, error)

type memoryRepository struct {
	owners        OwnerCheck
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]storedMessage
	seq           int64
}

// NewMemoryRepository builds an in-memory conversation store for development and tests.
// owners may be nil, in which case any non-empty user id is accepted.
func NewMemoryRepository(owners OwnerCheck) Repository {
	return &memoryRepository{
		owners:        owners,
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]storedMessage),
	}
}

func (r *memoryRepository) Create(ctx context.Context, c Conversation) error {
	if c.UserID == "" {
		return ErrOwnerNotFound
	}
	if r.owners != nil {
		ok, err := r.owners(ctx, c.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOwnerNotFound
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[c.ID] = c
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Conversation{}
	for _, c := range r.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) GetOwned(_ context.Context, id, userID string) (Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok || c.UserID != userID {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) Messages(_ context.Context, conversationID string) ([]Message, error) {
	r.mu.RLock()
	stored := append([]storedMessage(nil), r.messages[conversationID]...)
	r.mu.RUnlock()

	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].seq < stored[j].seq
		}
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})
	out := make([]Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, m.Message)
	}
	return out, nil
}

func (r *memoryRepository) AddOwnedMessage(_ context.Context, m Message, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[m.ConversationID]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	r.append(m)
	return nil
}

func (r *memoryRepository) AddMessage(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[m.ConversationID]; !ok {
		return ErrNotFound
	}
	r.append(m)
	return nil
}

func (r *memoryRepository) append(m Message) {
	r.seq++
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], storedMessage{Message: m, seq: r.seq})
}
