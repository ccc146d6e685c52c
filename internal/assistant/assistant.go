package assistant

import (
	"context"
	"errors"
)

// ErrDisabled is returned when no language-model credential is configured.
var ErrDisabled = errors.New("assistant disabled")

// Role identifies who authored a turn of history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of prior conversation history.
type Turn struct {
	Role    Role
	Content string
}

// Stream yields response text incrementally. Recv returns io.EOF once the
// response is complete.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Model produces a streamed reply to prompt given the prior history.
type Model interface {
	Stream(ctx context.Context, history []Turn, prompt string) (Stream, error)
}
