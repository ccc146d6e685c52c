package assistant

import (
	"context"
	"io"
	"sync"
)

// StaticModel replays a fixed sequence of chunks. It backs local development
// and tests. Err, when set, is returned after the chunks instead of io.EOF.
type StaticModel struct {
	Chunks []string
	Err    error

	mu      sync.Mutex
	prompts []string
	history [][]Turn
}

// Stream records the request and returns a replaying stream.
func (m *StaticModel) Stream(ctx context.Context, history []Turn, prompt string) (Stream, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.history = append(m.history, append([]Turn(nil), history...))
	m.mu.Unlock()
	return &staticStream{ctx: ctx, chunks: m.Chunks, err: m.Err}, nil
}

// Calls returns the prompts and histories seen so far.
func (m *StaticModel) Calls() ([]string, [][]Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...), append([][]Turn(nil), m.history...)
}

type staticStream struct {
	ctx    context.Context
	chunks []string
	err    error
	pos    int
	closed bool
}

func (s *staticStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.closed {
		return "", io.ErrClosedPipe
	}
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *staticStream) Close() error {
	s.closed = true
	return nil
}
