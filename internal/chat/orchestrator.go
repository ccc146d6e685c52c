package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/walletchat/walletchat/internal/assistant"
	"github.com/walletchat/walletchat/internal/conversation"
)

const persistTimeout = 5 * time.Second

// ChunkWriter receives streamed reply text. Flush pushes buffered bytes to the client.
type ChunkWriter interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Orchestrator turns a user message into a streamed, persisted AI reply.
type Orchestrator struct {
	conversations *conversation.Service
	locks         *conversation.Locks
	model         assistant.Model
	timeout       time.Duration
	logger        *slog.Logger
}

// NewOrchestrator wires the reply pipeline. A nil model disables generation.
func NewOrchestrator(conversations *conversation.Service, locks *conversation.Locks, model assistant.Model, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		conversations: conversations,
		locks:         locks,
		model:         model,
		timeout:       timeout,
		logger:        logger.With("component", "chat"),
	}
}

// Exchange is a reply whose first chunk has already arrived. The caller must
// call Relay or Abort exactly once.
type Exchange struct {
	UserMessage conversation.Message

	o              *Orchestrator
	conversationID string
	stream         assistant.Stream
	first          string
	ended          bool
	cancel         context.CancelFunc
	unlock         func()
	once           sync.Once
}

// Begin stores the user message and opens the model stream. Errors returned
// here happen before any byte reaches the client.
func (o *Orchestrator) Begin(ctx context.Context, conversationID, userID, content string) (*Exchange, error) {
	unlock, err := o.locks.Lock(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("acquire conversation lock: %w", err)
	}

	if o.model == nil {
		defer unlock()
		if _, err := o.conversations.Messages(ctx, conversationID, userID); err != nil {
			return nil, err
		}
		return nil, assistant.ErrDisabled
	}

	userMsg, err := o.conversations.AddMessage(ctx, conversationID, userID, content)
	if err != nil {
		unlock()
		return nil, err
	}
	msgs, err := o.conversations.Messages(ctx, conversationID, userID)
	if err != nil {
		unlock()
		return nil, err
	}

	modelCtx, cancel := context.WithTimeout(context.Background(), o.timeout)
	ex := &Exchange{
		UserMessage:    userMsg,
		o:              o,
		conversationID: conversationID,
		cancel:         cancel,
		unlock:         unlock,
	}

	stream, err := o.model.Stream(modelCtx, history(msgs, userMsg.ID), content)
	if err != nil {
		ex.release()
		return nil, fmt.Errorf("open model stream: %w", err)
	}
	ex.stream = stream

	first, err := stream.Recv()
	switch {
	case errors.Is(err, io.EOF):
		ex.ended = true
	case err != nil:
		ex.release()
		return nil, fmt.Errorf("await first chunk: %w", err)
	}
	ex.first = first
	return ex, nil
}

// Relay streams the reply into w and persists it once the model finishes.
// Nothing is persisted if the model or the writer fails part way.
func (e *Exchange) Relay(w ChunkWriter) (conversation.Message, error) {
	defer e.release()

	var acc strings.Builder
	chunk, ended := e.first, e.ended
	for {
		if chunk != "" {
			acc.WriteString(chunk)
			if _, err := w.Write([]byte(chunk)); err != nil {
				return conversation.Message{}, fmt.Errorf("write chunk: %w", err)
			}
			if err := w.Flush(); err != nil {
				return conversation.Message{}, fmt.Errorf("flush chunk: %w", err)
			}
		}
		if ended {
			break
		}
		var err error
		chunk, err = e.stream.Recv()
		if errors.Is(err, io.EOF) {
			chunk, ended = "", true
			continue
		}
		if err != nil {
			return conversation.Message{}, fmt.Errorf("model stream: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	reply, err := e.o.conversations.SaveAssistantMessage(ctx, e.conversationID, strings.TrimSpace(acc.String()))
	if err != nil {
		return conversation.Message{}, fmt.Errorf("persist reply: %w", err)
	}
	return reply, nil
}

// Abort releases the exchange without relaying anything.
func (e *Exchange) Abort() {
	e.release()
}

func (e *Exchange) release() {
	e.once.Do(func() {
		if e.stream != nil {
			if err := e.stream.Close(); err != nil {
				e.o.logger.Debug("close model stream", slog.Any("error", err))
			}
		}
		e.cancel()
		e.unlock()
	})
}

// history maps stored messages to model turns, leaving out the message being answered.
func history(msgs []conversation.Message, skipID string) []assistant.Turn {
	turns := make([]assistant.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == skipID {
			continue
		}
		role := assistant.RoleUser
		if m.Type == conversation.MessageTypeAI {
			role = assistant.RoleAssistant
		}
		turns = append(turns, assistant.Turn{Role: role, Content: m.Content})
	}
	return turns
}
