package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful assistant."

// OpenAI streams chat completions from an OpenAI-compatible endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a client for apiKey. baseURL is optional and targets
// OpenAI-compatible gateways.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

// Stream opens a streaming chat completion.
func (o *OpenAI) Stream(ctx context.Context, history []Turn, prompt string) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: buildMessages(history, prompt),
		Stream:   true,
	}
	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

func buildMessages(history []Turn, prompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips empty deltas so callers only see text.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("receive completion chunk: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
